package restcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mohae/deepcopy"

	"github.com/unkn0wn-root/restcache/library"
	"github.com/unkn0wn-root/restcache/transport"
)

// fakeAPI records requests and answers from a route table keyed by
// "METHOD url". Unknown routes answer 404.
type fakeAPI struct {
	mu     sync.Mutex
	routes map[string]reply
	log    []transport.Request
}

type reply struct {
	status int
	body   any
}

func newFakeAPI() *fakeAPI { return &fakeAPI{routes: make(map[string]reply)} }

func (f *fakeAPI) on(method, url string, status int, body any) {
	f.mu.Lock()
	f.routes[method+" "+url] = reply{status: status, body: body}
	f.mu.Unlock()
}

func (f *fakeAPI) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.log = append(f.log, *req)
	r, ok := f.routes[req.Method+" "+req.URL]
	f.mu.Unlock()
	if !ok {
		r = reply{status: 404}
	}
	if r.status >= 300 {
		return nil, &transport.Error{Method: req.Method, URL: req.URL, Status: r.status, Body: r.body}
	}
	// a fresh body per call, like a real decoder
	return &transport.Response{Status: r.status, Body: deepcopy.Copy(r.body)}, nil
}

func (f *fakeAPI) requests() []transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.Request(nil), f.log...)
}

func newTestRegistry(t *testing.T, api transport.Transport, optsOpt func(*Options)) *Registry {
	t.Helper()
	lib := library.New(map[string]library.Descriptor{
		"base":       library.URI("base"),
		"users":      library.URI("/api/users"),
		"users.tags": library.URI("/api/users/tags"),
		"posts":      library.URI("/api/posts"),
	})
	opts := Options{Library: lib, Transport: api}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func mustObtain(t *testing.T, r *Registry, typ string, p Params, o *CollectionOptions) *Collection {
	t.Helper()
	c, err := r.Obtain(typ, p, o)
	if err != nil {
		t.Fatalf("Obtain(%q): %v", typ, err)
	}
	return c
}

func TestNewRequiresLibraryAndTransport(t *testing.T) {
	if _, err := New(Options{Transport: newFakeAPI()}); err == nil {
		t.Fatal("expected error without library")
	}
	if _, err := New(Options{Library: library.New(nil)}); err == nil {
		t.Fatal("expected error without transport")
	}
}

func TestObtainReturnsSameInstanceForEqualParams(t *testing.T) {
	r := newTestRegistry(t, newFakeAPI(), nil)

	a := mustObtain(t, r, "base", Params{"a": 1, "b": "x"}, nil)
	b := mustObtain(t, r, "base", Params{"b": "x", "a": float64(1)}, nil)
	if a != b {
		t.Fatal("structurally equal params yielded different collections")
	}
	if mustObtain(t, r, "base", nil, nil) != mustObtain(t, r, "base", Params{}, nil) {
		t.Fatal("nil and empty params differ")
	}
	if mustObtain(t, r, "base", nil, &CollectionOptions{}) != mustObtain(t, r, "base", nil, nil) {
		t.Fatal("zero options differ from nil options")
	}
}

func TestObtainDistinguishesParamsAndOptions(t *testing.T) {
	r := newTestRegistry(t, newFakeAPI(), nil)

	a := mustObtain(t, r, "base", Params{"a": 1}, nil)
	if a == mustObtain(t, r, "base", Params{"a": 2}, nil) {
		t.Fatal("unequal params share a collection")
	}
	if a == mustObtain(t, r, "base", Params{"a": 1}, &CollectionOptions{IDKey: "_id"}) {
		t.Fatal("different options share a collection")
	}
	if a == mustObtain(t, r, "users", Params{"a": 1}, nil) {
		t.Fatal("different types share a collection")
	}
	if r.Len() != 4 {
		t.Fatalf("len=%d want 4", r.Len())
	}
}

func TestObtainFirstConfigurationWins(t *testing.T) {
	r := newTestRegistry(t, newFakeAPI(), nil)

	c := mustObtain(t, r, "base", Params{"a": 1}, nil)
	m := c.Meta()
	if m.IDKey != DefaultIDKey || m.CollectionKey != DefaultCollectionKey {
		t.Fatalf("defaults not applied: %+v", m)
	}
	if m.Params["a"] != 1 {
		t.Fatalf("meta params=%v", m.Params)
	}
	// mutating the caller's params after Obtain must not leak into meta
	p := Params{"q": "x"}
	c2 := mustObtain(t, r, "base", p, nil)
	p["q"] = "y"
	if c2.Meta().Params["q"] != "x" {
		t.Fatal("meta aliases caller params")
	}
}

func TestObtainUnknownType(t *testing.T) {
	r := newTestRegistry(t, newFakeAPI(), nil)
	_, err := r.Obtain("nope", nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	if r.Len() != 0 {
		t.Fatal("failed lookup registered a collection")
	}
}

func TestObtainConcurrentFirstAccess(t *testing.T) {
	r := newTestRegistry(t, newFakeAPI(), nil)

	const n = 32
	got := make([]*Collection, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.Obtain("users", Params{"page": 1}, nil)
			if err != nil {
				t.Error(err)
				return
			}
			got[i] = c
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("goroutine %d got a different collection", i)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("len=%d want 1", r.Len())
	}
}

func TestObtainAfterClose(t *testing.T) {
	r := newTestRegistry(t, newFakeAPI(), nil)
	_ = r.Close(context.Background())
	if _, err := r.Obtain("users", nil, nil); err == nil {
		t.Fatal("expected error after Close")
	}
}

type recInvalidator struct {
	mu     sync.Mutex
	scopes []string
	fail   map[string]bool
}

func (r *recInvalidator) InvalidateScope(_ context.Context, scope string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = append(r.scopes, scope)
	if r.fail[scope] {
		return fmt.Errorf("boom %s", scope)
	}
	return nil
}

func TestInvalidateCascadesByPrefix(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.on("GET", "/api/users", 200, map[string]any{"data": []any{map[string]any{"id": 1}}})
	api.on("GET", "/api/users/tags", 200, map[string]any{"data": []any{map[string]any{"id": 2}}})
	api.on("GET", "/api/posts", 200, map[string]any{"data": []any{map[string]any{"id": 3}}})
	inv := &recInvalidator{}
	r := newTestRegistry(t, api, func(o *Options) { o.Invalidator = inv })

	users := mustObtain(t, r, "users", nil, nil)
	tags := mustObtain(t, r, "users.tags", nil, nil)
	posts := mustObtain(t, r, "posts", nil, nil)
	for _, c := range []*Collection{users, tags, posts} {
		if _, err := c.List(ctx, nil); err != nil {
			t.Fatal(err)
		}
	}

	if err := r.Invalidate(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	if users.Len() != 0 || tags.Len() != 0 {
		t.Fatalf("users=%d tags=%d want both cleared", users.Len(), tags.Len())
	}
	if posts.Len() != 1 {
		t.Fatal("unrelated collection cleared")
	}
	if strings.Join(inv.scopes, ",") != "/api/users,/api/users/tags" {
		t.Fatalf("scopes=%v", inv.scopes)
	}
}

func TestInvalidateCollectsErrors(t *testing.T) {
	inv := &recInvalidator{fail: map[string]bool{"/api/users/tags": true}}
	r := newTestRegistry(t, newFakeAPI(), func(o *Options) { o.Invalidator = inv })

	err := r.Invalidate(context.Background(), "users")
	var ierr *InvalidateError
	if !errors.As(err, &ierr) {
		t.Fatalf("err=%v want *InvalidateError", err)
	}
	if len(ierr.Errs) != 1 || ierr.Scopes[0] != "/api/users/tags" {
		t.Fatalf("failed scopes=%v", ierr.Scopes)
	}
	if len(inv.scopes) != 2 {
		t.Fatal("a failing scope stopped the cascade")
	}
}

func TestRegistryClearListeners(t *testing.T) {
	r := newTestRegistry(t, newFakeAPI(), nil)
	c := mustObtain(t, r, "users", nil, nil)

	var order []string
	r.OnClear(func(got *Collection) {
		if got != c {
			t.Error("listener got another collection")
		}
		order = append(order, "registry")
	})
	cancel := c.OnClear(func(*Collection) { order = append(order, "collection") })

	c.ClearLocal()
	if strings.Join(order, ",") != "collection,registry" {
		t.Fatalf("order=%v", order)
	}

	cancel()
	cancel()
	c.ClearLocal()
	if strings.Join(order, ",") != "collection,registry,registry" {
		t.Fatalf("after cancel order=%v", order)
	}
}

func TestCollectionsAreSortedByKey(t *testing.T) {
	r := newTestRegistry(t, newFakeAPI(), nil)
	mustObtain(t, r, "users", nil, nil)
	mustObtain(t, r, "posts", nil, nil)
	mustObtain(t, r, "base", nil, nil)

	var types []string
	for _, c := range r.Collections() {
		types = append(types, c.Meta().Type)
	}
	if strings.Join(types, ",") != "base,posts,users" {
		t.Fatalf("types=%v", types)
	}
}
