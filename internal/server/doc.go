// Package server exposes the palette reducer as an MCP (Model Context
// Protocol) tool server, so an agent working on a game's sprite folder can
// reduce and check assets from its own session.
//
// Requests arrive as JSON-RPC 2.0 messages, one per line on stdin, and each
// request gets one response line on stdout. Handled methods are initialize,
// notifications/initialized, tools/list, tools/call and ping.
//
// Tools:
//   - image_reduce reduces one image, optionally to another path
//   - image_reduce_batch runs the batch runner over a folder or file list
//   - image_inspect reports mode, size, transparency and color count
//
// Arguments override the reducer options the server was created with. A
// failing tool answers with error code -32000 and the Go error as data;
// a batch with failed files is still a successful call whose result lists
// every outcome.
//
// Logs go to stderr through zerolog, and reducer progress lines are dropped.
//
//	srv := server.New(reducer.DefaultOptions(), version)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Msg("server error")
//	}
package server
