// Package workflow walks a compiled template.Template against a live
// HTTP fetch, recursing through the node tree and accumulating scraped
// values into dotted-path bindings (spec §4, §4.4).
//
// colly has no concrete reference call site in this codebase's HTTP
// layer, so Fetcher's default implementation below is written from
// colly's own documented API (NewCollector, OnResponse/OnError,
// per-request header injection via OnRequest) rather than adapted from
// an existing call shape. See DESIGN.md's internal/workflow entry.
package workflow

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jav-tidy/javtidy/internal/dom"
	"github.com/jav-tidy/javtidy/internal/eval"
	"github.com/jav-tidy/javtidy/internal/retry"
	"github.com/jav-tidy/javtidy/internal/script"
	"github.com/jav-tidy/javtidy/internal/template"
)

// Fetcher retrieves a URL's raw response body and status code. Runner
// calls it at most once per attempt; retries are Runner's concern.
type Fetcher func(ctx context.Context, url string, headers map[string]string) (body []byte, status int, err error)

// NewCollyFetcher returns a Fetcher backed by a fresh colly.Collector
// per call, configured with the given user agent and timeout. A fresh
// collector per call keeps concurrent workflow runs (one per queue
// worker) free of shared mutable state.
func NewCollyFetcher(userAgent string, timeout time.Duration) Fetcher {
	return func(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
		c := colly.NewCollector(colly.UserAgent(userAgent))
		c.SetRequestTimeout(timeout)

		var (
			body        []byte
			status      int
			callbackErr error
		)
		c.OnRequest(func(r *colly.Request) {
			for k, v := range headers {
				r.Headers.Set(k, v)
			}
		})
		c.OnResponse(func(r *colly.Response) {
			body = r.Body
			status = r.StatusCode
		})
		c.OnError(func(r *colly.Response, err error) {
			callbackErr = err
			if r != nil {
				status = r.StatusCode
			}
		})

		if err := c.Visit(url); err != nil {
			return nil, 0, fmt.Errorf("workflow: visit %s: %w", url, err)
		}
		if callbackErr != nil {
			return nil, status, fmt.Errorf("workflow: fetch %s: http %d: %w", url, status, callbackErr)
		}
		return body, status, nil
	}
}

// Bindings is the scrape result: an ordered, append-only mapping from
// dotted node path to every value written at that path, across every
// element match that reached it. A key absent from Bindings was never
// reached (spec §4.4's "missing"); a key present with one empty string
// was reached and extracted as blank (spec §4.4's "present but blank").
// Len 1 is a scalar binding, len > 1 a list binding, matching
// eval.Result's own scalar/list split.
type Bindings map[string][]string

// Runner executes templates against live documents.
type Runner struct {
	fetch         Fetcher
	cache         *dom.Cache
	retryCfg      retry.Config
	maxFetchCount int
}

// Option configures a Runner.
type Option func(*Runner)

// WithRetryConfig overrides the default fetch retry/backoff parameters.
func WithRetryConfig(cfg retry.Config) Option {
	return func(r *Runner) { r.retryCfg = cfg }
}

// NewRunner builds a Runner. maxFetchCount is spec §6's
// "maximum_fetch_count": each fetch is attempted at most maxFetchCount
// times on transient errors (unless WithRetryConfig overrides the retry
// parameters), and at most maxFetchCount request:true sub-fetches are
// followed within a single Run, guarding against runaway recursive
// templates.
func NewRunner(fetch Fetcher, maxFetchCount int, opts ...Option) *Runner {
	r := &Runner{
		fetch:         fetch,
		cache:         dom.NewCache(),
		retryCfg:      retry.DefaultConfig,
		maxFetchCount: maxFetchCount,
	}
	if maxFetchCount > 0 {
		r.retryCfg.MaxRetries = maxFetchCount - 1
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run fetches tpl.Entrypoint (resolved against initialEnv) and walks
// tpl.Main over the resulting document, returning accumulated
// Bindings. A failure to fetch the entrypoint itself is a hard error
// (spec §7: the entrypoint is not a soft-miss branch); failures on
// request:true sub-fetches are soft misses that simply contribute no
// bindings under their subtree.
func (r *Runner) Run(ctx context.Context, tpl *template.Template, initialEnv map[string][]string) (Bindings, error) {
	env := eval.NewEnvironment(initialEnv)

	url, err := eval.ResolveString(tpl.Entrypoint, env)
	if err != nil {
		return nil, fmt.Errorf("workflow: resolving entrypoint: %w", err)
	}

	doc, err := r.fetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("workflow: fetching entrypoint %s: %w", url, err)
	}

	acc := make(Bindings)
	fetches := 0
	if _, err := r.runNode(ctx, tpl.Main, doc.Root(), env, "main", acc, &fetches); err != nil {
		return nil, err
	}
	return acc, nil
}

// runNode evaluates node's script against cur, merges any value into
// acc under path, and recurses into children. Sibling children thread
// an evolving Environment sequentially (§4.4: "child nodes inherit the
// parent environment plus bindings from sibling extractions already
// completed"); separate element matches of the same node each start
// from the same parent Environment, independent of one another.
func (r *Runner) runNode(ctx context.Context, node *template.Node, cur dom.Cursor, env eval.Environment, path string, acc Bindings, fetches *int) (eval.Environment, error) {
	res, err := eval.Evaluate(node.Script, cur, env)
	if err != nil {
		return env, fmt.Errorf("workflow: evaluating %s: %w", path, err)
	}

	if node.Script.Type == script.ValueProducing {
		values := res.Strings()
		acc[path] = append(acc[path], values...)
		env = env.With(lastSegment(path), values)

		if node.Request {
			return r.followRequest(ctx, node, values, env, path, acc, fetches)
		}
		return env, nil
	}

	for _, c := range res.Cursors {
		if c.Empty() {
			continue
		}
		childEnv := env
		for _, ch := range node.Children {
			childEnv, err = r.runNode(ctx, ch.Node, c, childEnv, path+"."+ch.Name, acc, fetches)
			if err != nil {
				return env, err
			}
		}
	}
	return env, nil
}

// followRequest resolves node's extracted value as a follow-up URL and
// recurses children over the fetched document. A fetch failure here
// (transient-exhausted or otherwise) is a soft miss: the branch simply
// contributes no further bindings, matching spec §4.4's "HTTP failure
// on a request:true node does not fail the template".
func (r *Runner) followRequest(ctx context.Context, node *template.Node, extracted []string, env eval.Environment, path string, acc Bindings, fetches *int) (eval.Environment, error) {
	if len(extracted) == 0 || extracted[0] == "" {
		return env, nil
	}
	if *fetches >= r.maxFetchCount {
		return env, nil
	}
	*fetches++

	doc, err := r.fetchDocument(ctx, extracted[0])
	if err != nil {
		return env, nil
	}

	childEnv := env
	for _, ch := range node.Children {
		var rerr error
		childEnv, rerr = r.runNode(ctx, ch.Node, doc.Root(), childEnv, path+"."+ch.Name, acc, fetches)
		if rerr != nil {
			return env, rerr
		}
	}
	return childEnv, nil
}

// fetchDocument fetches and parses url, retrying transient errors and
// reusing a prior parse for the same URL within this run.
func (r *Runner) fetchDocument(ctx context.Context, url string) (*dom.Document, error) {
	if cached, ok := r.cache.Get(url); ok {
		return cached, nil
	}

	var doc *dom.Document
	operation := func() (interface{}, error) {
		body, status, err := r.fetch(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		if status >= http.StatusInternalServerError {
			return nil, fmt.Errorf("workflow: %s: http %d", url, status)
		}
		parsed, err := dom.Parse(url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		doc = parsed
		return parsed, nil
	}

	if _, err := retry.WithRetry(operation, retry.IsTransient, r.retryCfg); err != nil {
		return nil, err
	}
	r.cache.Put(url, doc)
	return doc, nil
}

// lastSegment returns the final dotted component of path, the short
// name siblings use to reference this node's binding via ${name}.
func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return path
}
