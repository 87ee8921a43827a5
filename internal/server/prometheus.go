// prometheus.go - Prometheus text exposition for the /metrics endpoint.
package server

import (
	"fmt"
	"net/http"
	"strings"
)

// metricsHandler renders the counter snapshot in Prometheus text format.
func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s := GetMetrics().Snapshot()

		var out strings.Builder
		counter := func(name, help string, value int64) {
			fmt.Fprintf(&out, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, value)
		}
		gauge := func(name, help string, value int64) {
			fmt.Fprintf(&out, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, value)
		}

		counter("filehub_requests_total", "Total number of HTTP requests", s.RequestsTotal)
		counter("filehub_request_errors_4xx_total", "HTTP responses with 4xx status", s.RequestErrors4xx)
		counter("filehub_request_errors_5xx_total", "HTTP responses with 5xx status", s.RequestErrors5xx)

		counter("filehub_uploads_total", "Completed file uploads (whole or chunked)", s.UploadsTotal)
		counter("filehub_upload_bytes_total", "Bytes accepted by completed uploads", s.UploadBytesTotal)
		counter("filehub_upload_errors_total", "Failed uploads", s.UploadErrorsTotal)

		counter("filehub_downloads_total", "Completed file downloads", s.DownloadsTotal)
		counter("filehub_download_bytes_total", "Bytes served by downloads", s.DownloadBytesTotal)
		counter("filehub_download_errors_total", "Failed downloads", s.DownloadErrorsTotal)

		counter("filehub_deletes_total", "Explicit blob deletions", s.DeletesTotal)
		counter("filehub_expired_total", "Blobs removed by the expiry sweeper", s.ExpiredTotal)

		counter("filehub_broadcasts_total", "Hub fan-outs performed", s.BroadcastsTotal)
		counter("filehub_event_deliveries_total", "Per-subscriber event deliveries", s.DeliveriesTotal)
		gauge("filehub_subscribers_active", "Currently connected event subscribers", s.SubscribersActive)

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(out.String()))
	})
}
