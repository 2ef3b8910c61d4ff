// Package scsnative layers goSession handlers over an scs session manager, for
// applications that already run [scs.SessionManager.LoadAndSave].
//
//	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
//		h := sessions.BeginNative(r.Context(), scsnative.New(r.Context(), sm), principal)
//		...
//	})
//	http.ListenAndServe(":8080", sm.LoadAndSave(mux))
//
// scs owns the cookie and persistence; the handler adds namespacing, entry TTLs
// and the fixation guard on top.
package scsnative
