package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/camwatch/internal/status"
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
	"stateClass": func(b status.ButtonStatus) string {
		switch {
		case !b.Loaded:
			return "unknown"
		case b.Sleepy:
			return "alert"
		case b.Enabled:
			return "on"
		default:
			return "off"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Camera Watch</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alert { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Camera Watch<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Buttons</h2>
<table id="buttons">
<tr><th>ID</th><th>State</th><th>Energy</th></tr>
{{range .Buttons}}<tr><td>{{.ID}}</td><td class="{{stateClass .}}">{{.State}}</td><td>{{.Battery}}%{{if not .GaugeRunning}} (stopped){{end}}</td></tr>
{{else}}<tr><td colspan="3">no buttons loaded</td></tr>
{{end}}</table>

<h2>Signals</h2>
<table>
<tr><th>Server</th><td class="{{if .SignalServerUp}}connected{{else}}disconnected{{end}}">{{if .SignalServerUp}}up{{else}}down{{end}} ({{.Config.SignalAddr}})</td></tr>
<tr><th>Sleepy</th><td id="sig-sleepy">{{.Signals.Sleepy}}</td></tr>
<tr><th>Awake</th><td id="sig-awake">{{.Signals.Awake}}</td></tr>
<tr><th>Stretching</th><td id="sig-stretching">{{.Signals.Stretching}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Revert</th><td>{{.Config.RevertMs}}ms</td></tr>
<tr><th>Gauge tick</th><td>{{.Config.GaugeTickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var table = document.getElementById("buttons");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function stateClass(b) {
    if (!b.loaded) return "unknown";
    if (b.sleepy) return "alert";
    return b.enabled ? "on" : "off";
  }

  function render(s) {
    while (table.rows.length > 1) table.deleteRow(1);
    s.buttons.forEach(function(b) {
      var row = table.insertRow();
      row.insertCell().textContent = b.id;
      var st = row.insertCell();
      st.textContent = b.state;
      st.className = stateClass(b);
      row.insertCell().textContent = b.battery + "%" + (b.gauge_running ? "" : " (stopped)");
    });
    document.getElementById("sig-sleepy").textContent = s.signal_counts.sleepy;
    document.getElementById("sig-awake").textContent = s.signal_counts.awake;
    document.getElementById("sig-stretching").textContent = s.signal_counts.stretching;
  }

  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onmessage = function(e) {
      try { render(JSON.parse(e.data).status); } catch (err) {}
    };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
