package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/grabnode/internal/logging"
)

// registerLogRoutes registers log history and level endpoints.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Get recent log entries from the in-memory history",
		Tags:        []string{"logs"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *LogsRequest) (*LogsResponse, error) {
		var minLevel slog.Level
		if input.Level != "" {
			if err := minLevel.UnmarshalText([]byte(input.Level)); err != nil {
				return nil, huma.Error400BadRequest("invalid log level", err)
			}
		}

		entries := filterEntries(logging.GetHistory().Entries(), minLevel, input.Module, input.Level != "")
		if input.Limit > 0 && len(entries) > input.Limit {
			entries = entries[len(entries)-input.Limit:]
		}
		return &LogsResponse{Body: LogsData{Entries: entries, Count: len(entries)}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "set-log-level",
		Method:        http.MethodPut,
		Path:          "/api/logs/level",
		Summary:       "Set Module Log Level",
		Description:   "Change the log level of one module at runtime",
		Tags:          []string{"logs"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{400, 401},
		Security:      withAuth(),
	}, func(_ context.Context, input *LogLevelRequest) (*struct{}, error) {
		if !logging.SetModuleLevel(input.Body.Module, input.Body.Level) {
			return nil, huma.Error400BadRequest("invalid log level: " + input.Body.Level)
		}
		s.logger.Info("Log level changed", "module", input.Body.Module, "level", input.Body.Level)
		return &struct{}{}, nil
	})
}

func filterEntries(entries []logging.Entry, minLevel slog.Level, module string, byLevel bool) []logging.Entry {
	out := make([]logging.Entry, 0, len(entries))
	for _, e := range entries {
		if module != "" && e.Module != module {
			continue
		}
		if byLevel {
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(e.Level)); err == nil && lvl < minLevel {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
