// Package services holds the client-side state and workflows built on top of
// the API gateway: the session, the campsite collection store, and the photo,
// review and lookup services.
//
// Every type here is safe for concurrent use. Network calls run on the
// caller's goroutine; state is committed under a mutex once the call returns,
// and observers registered with Subscribe are notified after the lock is
// released.
package services
