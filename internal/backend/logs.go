package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// LogQuery filters GET /logs/. Zero values are omitted.
type LogQuery struct {
	Page          int
	PerPage       int
	UserID        int
	AccessGranted *bool
	Since         time.Time
	Until         time.Time
}

func (q LogQuery) encode() string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.UserID > 0 {
		v.Set("user_id", strconv.Itoa(q.UserID))
	}
	if q.AccessGranted != nil {
		v.Set("access_granted", strconv.FormatBool(*q.AccessGranted))
	}
	if !q.Since.IsZero() {
		v.Set("start_date", q.Since.Format("2006-01-02T15:04:05"))
	}
	if !q.Until.IsZero() {
		v.Set("end_date", q.Until.Format("2006-01-02T15:04:05"))
	}
	return v.Encode()
}

// GetLogs fetches one page of the backend audit log. Requires an admin access token.
func (c *Client) GetLogs(ctx context.Context, q LogQuery) (*LogPage, error) {
	endpoint := "logs/"
	if query := q.encode(); query != "" {
		endpoint += "?" + query
	}
	return doGetJSON[LogPage](ctx, c, endpoint)
}

// GetAllLogs walks every page of the audit log. onPage is called after each
// page with the running count and the reported total.
func (c *Client) GetAllLogs(ctx context.Context, q LogQuery, onPage func(fetched, total int)) ([]AuditLog, error) {
	if q.Page <= 0 {
		q.Page = 1
	}

	var all []AuditLog
	for {
		page, err := c.GetLogs(ctx, q)
		if err != nil {
			return all, fmt.Errorf("fetching logs page %d: %w", q.Page, err)
		}
		all = append(all, page.Logs...)
		if onPage != nil {
			onPage(len(all), page.Total)
		}
		if len(page.Logs) == 0 || page.Page >= page.Pages {
			return all, nil
		}
		q.Page = page.Page + 1
	}
}

// GetLogStats fetches aggregate statistics for the last days.
func (c *Client) GetLogStats(ctx context.Context, days int) (*LogStats, error) {
	endpoint := "logs/stats"
	if days > 0 {
		endpoint += "?days=" + strconv.Itoa(days)
	}
	return doGetJSON[LogStats](ctx, c, endpoint)
}
