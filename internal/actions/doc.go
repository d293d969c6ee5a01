// Package actions applies a chosen disposition to an eligible series. The
// structural operation runs against the media server, and destructive
// dispositions also stop the monitoring service from tracking the series.
// Every attempt is appended to the action log whatever its outcome. The two
// external steps are independent and are never rolled back.
package actions
