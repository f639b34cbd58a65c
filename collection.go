package restcache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mohae/deepcopy"

	"github.com/unkn0wn-root/restcache/transport"
)

// Result is the outcome of Get. Single is set when the call was keyed by an
// identifier; Entity is then populated, List otherwise.
type Result struct {
	Single bool
	Entity Entity
	List   []Entity
}

// Collection mirrors one (type, params) pair of a remote API.
//
// The local sequence is guarded by a mutex held only while a completed
// response is merged; the pre-request hook and the transport call run
// unlocked, so operations on one collection may overlap. No order is
// promised between overlapping operations and a list Get replaces the
// whole sequence.
type Collection struct {
	reg  *Registry
	key  string
	meta Meta

	mu       sync.Mutex
	entities []Entity

	cleared listeners
}

func newCollection(r *Registry, key string, meta Meta) *Collection {
	return &Collection{reg: r, key: key, meta: meta}
}

// Get fetches one entity when params carry a truthy identifier, the list
// otherwise. A single entity already held locally is returned without any
// request; skipCache only bypasses the transport response cache.
func (c *Collection) Get(ctx context.Context, params Params, skipCache bool) (Result, error) {
	idKey := c.meta.IDKey
	if id := params[idKey]; truthy(id) {
		c.mu.Lock()
		if i := indexOf(c.entities, id, idKey); i >= 0 {
			out := c.entities[i].Clone()
			c.mu.Unlock()
			return Result{Single: true, Entity: out}, nil
		}
		c.mu.Unlock()

		query := params.clone()
		url := entityURL(c.meta.URI(query, nil), id)
		delete(query, idKey)
		resp, err := c.dispatch(ctx, &transport.Request{Method: transport.MethodGet, URL: url, Params: query}, skipCache)
		if err != nil {
			return Result{}, err
		}
		incoming, err := asEntity(resp.Body)
		if err != nil {
			return Result{}, err
		}
		return Result{Single: true, Entity: c.commit(incoming)}, nil
	}

	query := params.clone()
	for k, v := range c.meta.Params {
		query[k] = deepcopy.Copy(v)
	}
	resp, err := c.dispatch(ctx, &transport.Request{Method: transport.MethodGet, URL: c.meta.URI(query, nil), Params: query}, skipCache)
	if err != nil {
		return Result{}, err
	}
	list, err := c.listFrom(resp.Body)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.entities = list
	out := cloneAll(list)
	c.mu.Unlock()
	return Result{List: out}, nil
}

// One is Get keyed by id.
func (c *Collection) One(ctx context.Context, id any) (Entity, error) {
	res, err := c.Get(ctx, Params{c.meta.IDKey: id}, false)
	if err != nil {
		return nil, err
	}
	if !res.Single {
		return nil, fmt.Errorf("%w: %s", ErrMissingID, c.meta.IDKey)
	}
	return res.Entity, nil
}

// List is Get in list mode. An identifier in params is ignored.
func (c *Collection) List(ctx context.Context, params Params) ([]Entity, error) {
	query := params.clone()
	delete(query, c.meta.IDKey)
	res, err := c.Get(ctx, query, false)
	if err != nil {
		return nil, err
	}
	return res.List, nil
}

// Save creates (POST) or updates (PUT {uri}/{id}) entity depending on
// whether it carries a truthy identifier, then merges the server's answer.
// A response without a body merges the entity as sent. Writes resolve the
// URI from the entity alone, without the collection params.
func (c *Collection) Save(ctx context.Context, entity Entity) (Entity, error) {
	idKey := c.meta.IDKey
	req := &transport.Request{
		Method: transport.MethodPost,
		URL:    c.meta.URI(Params{}, entity),
		Body:   map[string]any(entity.Clone()),
	}
	if id := entity[idKey]; truthy(id) {
		req.Method = transport.MethodPut
		req.URL = entityURL(req.URL, id)
	}

	resp, err := c.dispatch(ctx, req, false)
	if err != nil {
		return nil, err
	}
	var incoming Entity
	if resp.Body == nil {
		incoming = entity.Clone()
	} else if incoming, err = asEntity(resp.Body); err != nil {
		return nil, err
	}
	return c.commit(incoming), nil
}

// Remove deletes entity on the server. On success the local entity with the
// same identifier, looked up again at that point, is dropped.
func (c *Collection) Remove(ctx context.Context, entity Entity) error {
	idKey := c.meta.IDKey
	id := entity[idKey]
	if !truthy(id) {
		return ErrMissingID
	}
	req := &transport.Request{
		Method: transport.MethodDelete,
		URL:    entityURL(c.meta.URI(Params{}, entity), id),
	}
	if _, err := c.dispatch(ctx, req, false); err != nil {
		return err
	}

	c.mu.Lock()
	if i := indexOf(c.entities, id, idKey); i >= 0 {
		c.entities = slices.Delete(c.entities, i, i+1)
	}
	c.mu.Unlock()
	return nil
}

// ClearLocal empties the local sequence and notifies the collection's
// listeners, then the registry's. No request is made.
func (c *Collection) ClearLocal() {
	c.mu.Lock()
	dropped := len(c.entities)
	c.entities = nil
	c.mu.Unlock()

	c.reg.hooks.CollectionCleared(c.meta.Type, dropped)
	c.cleared.emit(c)
	c.reg.cleared.emit(c)
}

// OnClear registers fn for ClearLocal on this collection only.
func (c *Collection) OnClear(fn func(*Collection)) (cancel func()) { return c.cleared.add(fn) }

// Entities returns the held entities themselves, in order. The maps are
// updated in place by later merges; read them only while no operation is
// in flight, or use View.
func (c *Collection) Entities() []Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entities)
}

// Snapshot returns deep copies of the held entities.
func (c *Collection) Snapshot() []Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.entities)
}

// View calls fn with the sequence while merges are held off. fn must not
// retain or modify the slice and must not call back into c.
func (c *Collection) View(fn func([]Entity)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.entities)
}

// Find returns the held entity with the given identifier.
func (c *Collection) Find(id any) (Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.entities, id, c.meta.IDKey); i >= 0 {
		return c.entities[i], true
	}
	return nil, false
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entities)
}

func (c *Collection) Meta() Meta      { return c.meta.clone() }
func (c *Collection) Key() string     { return c.key }
func (c *Collection) BaseURI() string { return c.meta.BaseURI() }

// commit merges incoming and returns a copy of the stored result.
func (c *Collection) commit(incoming Entity) Entity {
	idKey := c.meta.IDKey
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = Merge(c.entities, incoming, idKey)
	if i := indexOf(c.entities, incoming[idKey], idKey); i >= 0 {
		return c.entities[i].Clone()
	}
	return c.entities[len(c.entities)-1].Clone()
}

// listFrom builds the replacement sequence from a list body.
func (c *Collection) listFrom(body any) ([]Entity, error) {
	if body == nil {
		return []Entity{}, nil
	}
	m, ok := asMap(body)
	if !ok {
		return nil, fmt.Errorf("%w: list body is %T", ErrMalformedResponse, body)
	}
	var items []any
	switch t := m[c.meta.CollectionKey].(type) {
	case []any:
		items = t
	case []map[string]any:
		for _, e := range t {
			items = append(items, e)
		}
	}
	out := make([]Entity, 0, len(items))
	for _, it := range items {
		if e, ok := asMap(it); ok {
			out = Merge(out, Entity(e), c.meta.IDKey)
		}
	}
	return out, nil
}

func (c *Collection) dispatch(ctx context.Context, req *transport.Request, skipCache bool) (*transport.Response, error) {
	r := c.reg
	if r.pre != nil {
		if err := r.pre.Run(ctx); err != nil {
			r.hooks.PreRequestRejected(c.meta.Type, err)
			r.log.Warn("pre-request hook rejected", Fields{"type": c.meta.Type, "method": req.Method, "err": err})
			return nil, &PreRequestError{Type: c.meta.Type, Cause: err}
		}
	}

	req.Config = c.meta.config(req.Method)
	if c.meta.Cache != nil {
		req.Cache = &transport.CachePolicy{Scope: c.meta.BaseURI(), TTL: c.meta.Cache.TTL, Bypass: skipCache}
	}

	r.log.Debug("request", Fields{"type": c.meta.Type, "method": req.Method, "url": req.URL})
	resp, err := r.transport.Do(ctx, req)
	if err != nil {
		status := 0
		var terr *transport.Error
		if errors.As(err, &terr) {
			status = terr.Status
		}
		r.hooks.RequestFailed(req.Method, req.URL, status, err)
		r.log.Warn("request failed", Fields{"type": c.meta.Type, "method": req.Method, "url": req.URL, "status": status, "err": err})
		return nil, err
	}
	if resp == nil {
		resp = &transport.Response{}
	}
	return resp, nil
}

func entityURL(uri string, id any) string { return uri + "/" + pathID(id) }

func asEntity(body any) (Entity, error) {
	if m, ok := asMap(body); ok {
		return Entity(m), nil
	}
	return nil, fmt.Errorf("%w: entity body is %T", ErrMalformedResponse, body)
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, t != nil
	case Entity:
		return map[string]any(t), t != nil
	}
	return nil, false
}
