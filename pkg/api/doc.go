// Package api exposes the notification engine over HTTP: preference
// management, the notify entry point, delivery status, read receipts,
// manual replay, a websocket attach point for realtime delivery and an
// operator-only audit query.
//
// The router is a chi mux; wire it with the engine components via Deps:
//
//	router := api.NewRouter(cfg, api.Deps{
//		Engine:      engine,
//		Preferences: prefs,
//		Tracker:     tracker,
//		Replay:      replay,
//		Hub:         hub,
//	})
//	http.ListenAndServe(cfg.Addr, router)
//
// The audit endpoint is mounted only when an ops token is configured and
// requires it as a bearer token.
package api
