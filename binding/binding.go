// Package binding projects collections onto view objects with callback
// style operations, the shape UI layers bind to.
//
// Each View shares its collection's entities; the core API stays
// result-based and callbacks exist only here. Every operation invokes
// exactly one of its callbacks, and either may be nil.
package binding

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/mohae/deepcopy"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/restcache"
)

// Source names one collection to bind.
type Source struct {
	Type      string
	Params    restcache.Params
	Options   *restcache.CollectionOptions
	Name      string // "" => CamelCase(Type)
	SkipCache bool   // for the initial load
}

// Views are keyed by name.
type Views map[string]*View

type View struct {
	Name string
	coll *restcache.Collection
}

// Bind obtains every source's collection and runs the initial list loads
// concurrently. Loads are independent: one failing never cancels the
// others. Views are returned even when a load fails; the error is the first
// load failure. Obtain failures and duplicate names are returned before any
// load starts.
func Bind(ctx context.Context, reg *restcache.Registry, sources ...Source) (Views, error) {
	views := make(Views, len(sources))
	order := make([]*View, 0, len(sources))
	for _, s := range sources {
		c, err := reg.Obtain(s.Type, s.Params, s.Options)
		if err != nil {
			return nil, err
		}
		name := s.Name
		if name == "" {
			name = CamelCase(s.Type)
		}
		if _, dup := views[name]; dup {
			return nil, fmt.Errorf("binding: duplicate view name %q", name)
		}
		v := &View{Name: name, coll: c}
		views[name] = v
		order = append(order, v)
	}

	var g errgroup.Group
	for i, v := range order {
		skip := sources[i].SkipCache
		g.Go(func() error {
			_, err := v.coll.Get(ctx, nil, skip)
			if err != nil {
				return fmt.Errorf("binding: load %s: %w", v.Name, err)
			}
			return nil
		})
	}
	return views, g.Wait()
}

// Data returns the collection's entities themselves (see
// restcache.Collection.Entities).
func (v *View) Data() []restcache.Entity { return v.coll.Entities() }

func (v *View) Collection() *restcache.Collection { return v.coll }

func (v *View) Save(ctx context.Context, e restcache.Entity, ok func(restcache.Entity), fail func(error)) {
	saved, err := v.coll.Save(ctx, e)
	settle(err, fail, func() {
		if ok != nil {
			ok(saved)
		}
	})
}

func (v *View) Remove(ctx context.Context, e restcache.Entity, ok func(), fail func(error)) {
	err := v.coll.Remove(ctx, e)
	settle(err, fail, func() {
		if ok != nil {
			ok()
		}
	})
}

// Refresh reloads the list, optionally clearing local state first so
// observers see an empty collection while the request is in flight.
func (v *View) Refresh(ctx context.Context, clearLocal bool, ok func([]restcache.Entity), fail func(error)) {
	if clearLocal {
		v.coll.ClearLocal()
	}
	res, err := v.coll.Get(ctx, nil, false)
	settle(err, fail, func() {
		if ok != nil {
			ok(res.List)
		}
	})
}

func settle(err error, fail func(error), ok func()) {
	if err != nil {
		if fail != nil {
			fail(err)
		}
		return
	}
	ok()
}

// EditCopy returns a deep copy of e for edit forms.
func EditCopy(e restcache.Entity) restcache.Entity {
	if e == nil {
		return nil
	}
	return deepcopy.Copy(e).(restcache.Entity)
}

// CamelCase names a view after a dotted type: dots and spaces separate
// words, the first letter is lowered and every later word start raised.
// "HelloBye" => "helloBye", "a.b" => "aB", "users.tags" => "usersTags".
func CamelCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	first, boundary := true, true
	for _, r := range strings.ReplaceAll(s, ".", " ") {
		word := r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case unicode.IsSpace(r):
			boundary = true
			continue
		case word && first:
			b.WriteRune(unicode.ToLower(r))
		case word && boundary:
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
		first = false
		boundary = !word
	}
	return b.String()
}
