// Command social is a thin terminal client over the glasswing services:
// sign in, read the feed, post, follow, like, and search against a real
// backend. It exists as operational glue; everything interesting lives in
// internal/.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"glasswing/internal/backend"
	"glasswing/internal/cache"
	"glasswing/internal/config"
	"glasswing/internal/interactions"
	"glasswing/internal/models"
	"glasswing/internal/observability"
	"glasswing/internal/repository"
	"glasswing/internal/service"
	"glasswing/internal/session"
	"glasswing/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "glasswing-client",
		ServiceVersion: "dev",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TraceExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	cache.InitRedis(cfg.RedisURL)

	api := backend.New(cfg.BackendURL, cfg.AnonKey, backend.WithTimeout(cfg.HTTPTimeout()))
	profiles := repository.NewProfileRepository(api)
	posts := repository.NewPostRepository(api)
	likes := repository.NewLikeRepository(api)
	relationships := repository.NewRelationshipRepository(api)
	notifications := repository.NewNotificationRepository(api)

	provider := session.NewProvider(api, profiles, session.NewFileStore(cfg.SessionFile))
	defer provider.Close()

	files := storage.NewManager(api)
	reconciler := interactions.NewReconciler(likes, relationships, posts, profiles, notifications)
	feed := service.NewFeedService(posts, cfg.FeedPageSize)
	postSvc := service.NewPostService(posts, files, provider, service.Buckets{
		Images: cfg.ImagesBucket,
		Videos: cfg.VideosBucket,
	})
	profileSvc := service.NewProfileService(profiles, posts, likes, files, provider, cfg.AvatarsBucket)
	searchSvc := service.NewSearchService(profiles, posts, cfg.DebounceWindow())
	defer searchSvc.Close()
	notifSvc := service.NewNotificationService(notifications, provider)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// One correlation id per invocation ties every table log line of a
	// command together.
	ctx = observability.WithCorrelationID(ctx, observability.GenerateCorrelationID())

	provider.Restore(ctx)

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "signup":
		requireArgs(args, 5, "signup <email> <password> <username> <full name>")
		err = provider.SignUp(ctx, args[1], args[2], args[3], strings.Join(args[4:], " "))
		report(err, "account created")

	case "login":
		requireArgs(args, 3, "login <email> <password>")
		err = provider.SignIn(ctx, args[1], args[2])
		report(err, "signed in")

	case "logout":
		err = provider.SignOut(ctx)
		report(err, "signed out")

	case "whoami":
		identity := provider.Identity()
		if identity == nil {
			fmt.Println("not signed in")
			return
		}
		fmt.Printf("%s (%s)\n", identity.Email, identity.ID)
		if profile := provider.CurrentProfile(); profile != nil {
			fmt.Printf("@%s (%s)\n", profile.Username, profile.FullName)
		}

	case "feed":
		page, err := feed.Fetch(ctx, repository.FeedCursor{})
		exitOn(err)
		for _, p := range page.Posts {
			printPost(&p, files, cfg.ImagesBucket)
		}

	case "post":
		requireArgs(args, 2, "post <text> [image files...]")
		draft := service.Draft{Text: args[1]}
		for _, name := range args[2:] {
			content, err := os.ReadFile(name)
			exitOn(err)
			draft.Images = append(draft.Images, storage.File{Name: name, Content: content})
		}
		outcome, err := postSvc.Submit(ctx, draft)
		exitOn(err)
		for _, failed := range outcome.Failed() {
			fmt.Printf("upload failed: %s: %v\n", failed.Name, failed.Err)
		}
		fmt.Printf("posted %s\n", outcome.Post.ID)

	case "profile":
		requireArgs(args, 2, "profile <username>")
		profile, err := profileSvc.Lookup(ctx, args[1])
		if models.IsNotFound(err) {
			fmt.Println("user not found")
			return
		}
		exitOn(err)
		fmt.Printf("@%s (%s)\n", profile.Username, profile.FullName)
		fmt.Printf("%d posts, %d followers, %d following\n", profile.Posts, profile.Followers, profile.Following)
		tab := service.TabPosts
		if len(args) > 2 {
			tab = service.Tab(args[2])
		}
		tabbed, err := profileSvc.TabPosts(ctx, profile.ID, tab)
		exitOn(err)
		for _, p := range tabbed {
			printPost(&p, files, cfg.ImagesBucket)
		}

	case "like":
		requireArgs(args, 2, "like <post-id>")
		identity := provider.Identity()
		actorID := ""
		if identity != nil {
			actorID = identity.ID
		}
		found, err := posts.GetByIDs(ctx, []string{args[1]})
		exitOn(err)
		if len(found) == 0 {
			fmt.Println("post not found")
			return
		}
		liked, err := reconciler.ToggleLike(ctx, actorID, &found[0])
		exitOn(err)
		if liked {
			fmt.Printf("liked, %d likes\n", found[0].Likes)
		} else {
			fmt.Printf("like removed, %d likes\n", found[0].Likes)
		}

	case "avatar":
		requireArgs(args, 2, "avatar <image file>")
		content, err := os.ReadFile(args[1])
		exitOn(err)
		path, err := profileSvc.UpdateAvatar(ctx, storage.File{Name: filepath.Base(args[1]), Content: content})
		exitOn(err)
		fmt.Printf("avatar updated: %s\n", files.FileURL(path, cfg.AvatarsBucket))

	case "follow":
		requireArgs(args, 2, "follow <username>")
		identity := provider.Identity()
		target, err := profileSvc.Lookup(ctx, args[1])
		exitOn(err)
		actorID := ""
		if identity != nil {
			actorID = identity.ID
		}
		following, err := reconciler.ToggleFollow(ctx, actorID, target)
		exitOn(err)
		if following {
			fmt.Printf("now following @%s\n", target.Username)
		} else {
			fmt.Printf("unfollowed @%s\n", target.Username)
		}

	case "search":
		requireArgs(args, 2, "search <query>")
		results := searchSvc.Search(ctx, strings.Join(args[1:], " "))
		for _, p := range results.Profiles {
			fmt.Printf("@%s (%s)\n", p.Username, p.FullName)
		}
		for _, p := range results.Posts {
			printPost(&p, files, cfg.ImagesBucket)
		}

	case "notifications":
		list, err := notifSvc.List(ctx)
		exitOn(err)
		for _, n := range list {
			read := " "
			if n.IsRead {
				read = "✓"
			}
			fmt.Printf("[%s] %s from %s\n", read, n.Type, n.InitiatorID)
		}
		exitOn(notifSvc.MarkAllRead(ctx))

	default:
		usage()
		os.Exit(2)
	}
}

func printPost(p *models.Post, files *storage.Manager, imagesBucket string) {
	author := p.UserID
	if p.Profile != nil {
		author = "@" + p.Profile.Username
	}
	fmt.Printf("%s  %s  (%d likes)\n", p.CreatedAt.Format(time.RFC822), author, p.Likes)
	if p.Text != "" {
		fmt.Printf("  %s\n", p.Text)
	}
	for _, img := range p.Images {
		fmt.Printf("  image: %s\n", files.FileURL(img, imagesBucket))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: social <command>

commands:
  signup <email> <password> <username> <full name>
  login <email> <password>
  logout
  whoami
  feed
  post <text> [image files...]
  profile <username> [posts|media|likes]
  like <post-id>
  avatar <image file>
  follow <username>
  search <query>
  notifications`)
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "usage: social %s\n", usage)
		os.Exit(2)
	}
}

func report(err error, ok string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(ok)
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
