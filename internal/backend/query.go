package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query builds a filtered request against a backend table. Methods return
// the receiver so calls chain; a Query is single-use.
type Query struct {
	c      *Client
	table  string
	params url.Values
}

// From starts a query against the named table.
func (c *Client) From(table string) *Query {
	return &Query{
		c:      c,
		table:  table,
		params: url.Values{},
	}
}

// Select sets the returned columns, including embedded resources, e.g.
// "*, profile:profiles(*)".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Lt filters rows where column is strictly less than value.
func (q *Query) Lt(column, value string) *Query {
	q.params.Add(column, "lt."+value)
	return q
}

// Ilike filters rows where column matches the pattern case-insensitively.
// The pattern uses * as a wildcard.
func (q *Query) Ilike(column, pattern string) *Query {
	q.params.Add(column, "ilike."+pattern)
	return q
}

// In filters rows where column is one of values.
func (q *Query) In(column string, values []string) *Query {
	q.params.Add(column, "in.("+strings.Join(values, ",")+")")
	return q
}

// Or applies a disjunction of filters, e.g.
// "username.ilike.*jane*,full_name.ilike.*jane*".
func (q *Query) Or(filters string) *Query {
	q.params.Add("or", "("+filters+")")
	return q
}

// Order sorts the result by column. Chained calls build a composite sort,
// left to right.
func (q *Query) Order(column string, descending bool) *Query {
	dir := "asc"
	if descending {
		dir = "desc"
	}
	term := column + "." + dir
	if existing := q.params.Get("order"); existing != "" {
		term = existing + "," + term
	}
	q.params.Set("order", term)
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

func (q *Query) resource() string {
	return "table:" + q.table
}

func (q *Query) path() string {
	return "/rest/v1/" + q.table
}

// Get executes the query and decodes the matching rows into dest, which
// must be a pointer to a slice.
func (q *Query) Get(ctx context.Context, dest any) error {
	return q.c.doJSON(ctx, request{
		method:   http.MethodGet,
		path:     q.path(),
		query:    q.params,
		resource: q.resource(),
	}, dest)
}

// Single executes the query expecting exactly one row and decodes it into
// dest. A miss surfaces as an APIError satisfying IsNoRows.
func (q *Query) Single(ctx context.Context, dest any) error {
	return q.c.doJSON(ctx, request{
		method:   http.MethodGet,
		path:     q.path(),
		query:    q.params,
		headers:  map[string]string{"Accept": "application/vnd.pgrst.object+json"},
		resource: q.resource(),
	}, dest)
}

// Count returns the exact number of rows matching the query without
// fetching them.
func (q *Query) Count(ctx context.Context) (int, error) {
	resp, err := q.c.do(ctx, request{
		method:   http.MethodHead,
		path:     q.path(),
		query:    q.params,
		headers:  map[string]string{"Prefer": "count=exact"},
		resource: q.resource(),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Content-Range is "0-24/3573" or "*/0" for an empty match.
	contentRange := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0, fmt.Errorf("missing count in Content-Range %q", contentRange)
	}
	n, err := strconv.Atoi(contentRange[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("bad count in Content-Range %q: %w", contentRange, err)
	}
	return n, nil
}

// Insert inserts row (a struct or map, or a slice of them). When dest is
// non-nil the created representation is decoded into it.
func (q *Query) Insert(ctx context.Context, row, dest any) error {
	body, err := jsonBody(row)
	if err != nil {
		return err
	}

	headers := map[string]string{"Prefer": "return=minimal"}
	if dest != nil {
		headers["Prefer"] = "return=representation"
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}

	return q.c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     q.path(),
		query:    q.params,
		headers:  headers,
		body:     body,
		resource: q.resource(),
	}, dest)
}

// Update patches the rows matched by the query's filters. Writes target
// single rows by primary key or unique tuple; callers are responsible for
// narrowing the filter accordingly.
func (q *Query) Update(ctx context.Context, patch any) error {
	body, err := jsonBody(patch)
	if err != nil {
		return err
	}

	return q.c.doJSON(ctx, request{
		method:   http.MethodPatch,
		path:     q.path(),
		query:    q.params,
		headers:  map[string]string{"Prefer": "return=minimal"},
		body:     body,
		resource: q.resource(),
	}, nil)
}

// Delete removes the rows matched by the query's filters. Deleting rows
// that are already absent succeeds.
func (q *Query) Delete(ctx context.Context) error {
	return q.c.doJSON(ctx, request{
		method:   http.MethodDelete,
		path:     q.path(),
		query:    q.params,
		resource: q.resource(),
	}, nil)
}
