package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/feeder/internal/schedule"
	"github.com/sweeney/feeder/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"display": status.DisplayTime,
	"twoDigits": func(n int) string {
		return fmt.Sprintf("%02d", n)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Feeder</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
input[type=number] { width: 4em; }
.feeding { color: green; font-weight: bold; }
.idle { color: #888; }
.error { color: red; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Feeder</h1>

<h2>Schedule</h2>
<p>Current feed time: <strong id="schedule">{{display .Schedule}}</strong></p>
<form method="POST" action="/">
<input type="number" name="hour" min="1" max="12" value="{{.Hour12}}">
:
<input type="number" name="minute" min="0" max="59" value="{{twoDigits .Schedule.Minute}}">
<select name="ampm">
<option value="AM"{{if eq .Meridiem "AM"}} selected{{end}}>AM</option>
<option value="PM"{{if eq .Meridiem "PM"}} selected{{end}}>PM</option>
</select>
<input type="submit" value="Set">
</form>

<h2>State</h2>
<table>
<tr><th>Local time</th><td>{{.LocalTime}}</td></tr>
<tr><th>Actuator</th><td class="{{if .Feeding}}feeding{{else}}idle{{end}}">{{if .Feeding}}FEEDING{{else}}IDLE{{end}}</td></tr>
{{if .Guard}}<tr><th>Guard</th><td>{{.Guard}}{{if .CooldownLeft}} ({{uptime .CooldownLeft}} left){{end}}</td></tr>{{end}}
<tr><th>Last feed</th><td>{{if .LastFeed.IsZero}}never{{else}}{{.LastFeed.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
{{if .LastError}}<tr><th>Last error</th><td class="error">{{.LastError}}</td></tr>{{end}}
<tr><th>Feeds</th><td>{{.Counts.Feeds}}</td></tr>
<tr><th>Failures</th><td>{{.Counts.Failures}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Cooldown</th><td>{{.Config.CooldownMs}}ms</td></tr>
<tr><th>Feed duration</th><td>{{.Config.FeedDurationMs}}ms</td></tr>
<tr><th>Step delay</th><td>{{.Config.StepDelayUs}}us</td></tr>
<tr><th>Pins</th><td>step {{.Config.PinStep}}, dir {{.Config.PinDir}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/api/schedule">API</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	h12, mer := schedule.To12Hour(snap.Schedule.Hour)
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Hour12   int
		Meridiem string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Hour12:   h12,
		Meridiem: mer,
	}
	indexTmpl.Execute(w, data)
}
