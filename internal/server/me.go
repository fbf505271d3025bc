package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kograph/internal/changefeed"
	notificationdomain "github.com/smallbiznis/kograph/internal/notification/domain"
)

const sseHeartbeatInterval = 15 * time.Second

var userStreamTables = []string{
	changefeed.TableCheckouts,
	changefeed.TableWithdrawals,
	changefeed.TableLedgerEntries,
	changefeed.TableAPIKeys,
	changefeed.TableNotifications,
	changefeed.TableUserSettings,
	changefeed.TableProfiles,
}

func (s *Server) GetOverview(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	overview, err := s.overviewSvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) ListNotifications(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rows, err := s.notifySvc.ListForUser(c.Request.Context(), userID, s.policy.Get().Lists.Overview)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rows == nil {
		rows = []notificationdomain.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// StreamEvents pushes the caller's own row changes as server-sent events.
// Each event carries identifiers only; clients refetch through the JSON routes.
func (s *Server) StreamEvents(c *gin.Context) {
	if s.changes == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	tables, err := parseStreamTables(c.Query("tables"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	subscription, backlog, err := s.changes.SubscribeUser(userID, tables...)
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	for _, change := range backlog {
		if err := writeChangeEvent(writer, change); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-subscription.Events():
			if !ok {
				return
			}
			if err := writeChangeEvent(writer, change); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func parseStreamTables(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return userStreamTables, nil
	}

	allowed := make(map[string]struct{}, len(userStreamTables))
	for _, table := range userStreamTables {
		allowed[table] = struct{}{}
	}

	tables := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		table := strings.TrimSpace(part)
		if table == "" {
			continue
		}
		if _, ok := allowed[table]; !ok {
			return nil, ErrInvalidRequest
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return nil, ErrInvalidRequest
	}
	return tables, nil
}

func writeChangeEvent(w io.Writer, change changefeed.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Table, data)
	return err
}
