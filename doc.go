// Package restcache keeps client-side mirrors of REST collections.
//
// A Registry maps (resource type, query params, options) to exactly one
// Collection. A Collection talks to the API through a transport.Transport
// and keeps an ordered, id-unique sequence of entities:
//
//   - Get with an id returns the local entity when present, otherwise
//     GETs {uri}/{id} and merges the result.
//   - Get without an id GETs {uri}?params and replaces the sequence with
//     body[CollectionKey].
//   - Save POSTs new entities and PUTs persisted ones to {uri}/{id},
//     merging the response.
//   - Remove DELETEs {uri}/{id} and drops the entity, re-found by id.
//
// Merging overwrites an existing entity field by field in place, so code
// holding the map (see Collection.Entities) observes updates.
//
// Types resolve to URIs through a library.Library. Responses can be cached
// per collection by wrapping the transport with respcache.
//
//	lib := library.New(map[string]library.Descriptor{"users": library.URI("/api/users")})
//	reg, _ := restcache.New(restcache.Options{Library: lib, Transport: transport.NewHTTP()})
//	users, _ := reg.Obtain("users", restcache.Params{"active": true}, nil)
//	list, err := users.List(ctx, nil)
package restcache
