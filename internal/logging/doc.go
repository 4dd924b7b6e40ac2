// Package logging provides structured logging with per-module levels.
//
// Output is routed automatically: to stdout when a terminal, pipe or file is
// attached, to the systemd journal when journald is reachable, and always to
// an in-memory history that the API serves at /api/logs.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"camera": "debug",
//			"api":    "warn",
//		},
//	})
//
// Then take a module logger:
//
//	logger := logging.GetLogger("rig")
//	logger.Info("Camera added", "camera_id", id)
//
// Loggers created before Initialize pick up the configured level when it runs.
// Levels can be changed at runtime with SetModuleLevel.
//
// Journal entries carry SYSLOG_IDENTIFIER=grabnode and one upper-case field
// per attribute:
//
//	journalctl -t grabnode MODULE=camera CAMERA_ID=2
package logging
