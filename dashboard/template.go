package dashboard

import (
	"bytes"
	"html/template"
	"io"
	"strings"
)

var funcMap = template.FuncMap{
	"hiddenClass": func(hidden bool) string {
		if hidden {
			return "column-hidden"
		}
		return ""
	},
	"selectIcon": func(all bool) string {
		if all {
			return "☑"
		}
		return "☐"
	},
	"modes":  func() []Mode { return []Mode{ModeAll, ModeCPU, ModeGPU} },
	"isMode": func(a, b Mode) bool { return a == b },
	"upper":  strings.ToUpper,
}

var consoleTemplates = template.Must(template.New("console").Funcs(funcMap).Parse(tmplPage + tmplRigs))

// RenderPage writes the full console page
func RenderPage(w io.Writer, v View) error {
	return consoleTemplates.ExecuteTemplate(w, "page", v)
}

// RenderRigs writes the rig list, stats and header fragment pushed to
// connected browsers
func RenderRigs(w io.Writer, v View) error {
	return consoleTemplates.ExecuteTemplate(w, "rigs", v)
}

// RigsHTML renders the fragment into a string
func RigsHTML(v View) (string, error) {
	var buf bytes.Buffer
	if err := RenderRigs(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const tmplRigs = `{{define "rigs"}}
<div class="action-bar">
  <span id="btn-toggle-select" class="select-toggle" data-post="select-all">{{selectIcon .AllSelected}}</span>
  {{range $m := modes}}<button class="action-tab{{if isMode $.Mode $m}} active{{end}}" data-mode="{{$m}}">{{upper (print $m)}}</button>{{end}}
  <span class="stat" id="stat-gpu-watts">{{.Watts}}</span>
  <span class="stat" id="stat-hashrate">{{.Hashrate}}</span>
  <input id="action-output" readonly value="{{.ActionOutput}}">
  <span class="last-update">Updated {{.LastUpdate}}</span>
</div>
<div class="rig-header-grid">
  {{range .Header}}{{if eq .Index 0}}<div class="header-cell"><span class="reset-btn{{if $.Resetting}} disabled{{end}}" data-post="actions/reset" title="Hard reset rigs">⟳</span> <span class="name-header-text" data-post="columns/reset" title="Click to show all hidden columns">{{.Label}}</span></div>{{else}}<div class="header-cell {{hiddenClass .Hidden}}" data-post="columns/{{.Index}}/toggle" title="Click to hide/show column">{{.Label}}</div>{{end}}{{end}}
</div>
<div id="rig-list">
{{range .Rows}}
  <div class="rig-row{{if .Selected}} selected{{end}}">
    <div class="rig-main" data-popover="{{.ID}}">
      <div class="rig-name" data-rig="{{.Name}}">{{.Name}}</div>
      {{range .Cells}}<div class="metric {{hiddenClass .Hidden}}"><span class="{{.Class}}"{{if .Title}} title="{{.Title}}"{{end}}>{{.Text}}</span></div>{{end}}
    </div>
    <div id="docker-{{.ID}}" class="docker-popover" style="display: {{if .Open}}flex{{else}}none{{end}}">
      <div class="pop-content">
        <div class="pop-docker">
          <div class="docker-header">Docker Containers ({{len .Containers}})</div>
          {{range .Containers}}
          <div class="docker-container">
            <div class="docker-name-row">{{.Name}}</div>
            <div class="docker-detail-label">Image</div><div class="docker-detail-value image">{{.Image}}</div>
            <div class="docker-detail-label">Uptime</div><div class="docker-detail-value uptime">{{.Uptime}}</div>
          </div>
          {{else}}<div class="muted">No containers</div>{{end}}
        </div>
        <div class="pop-miners">
          {{if .MinersHeader}}<div class="docker-header">{{.MinersHeader}}</div>{{end}}
          {{range .Miners}}
          <div class="miner-row-horizontal">
            <div class="miner-name-row">{{.Title}}</div>
            <div class="miner-details-compact">
              {{range .Stats}}<div class="miner-stat-item"><div class="stat-label">{{.Label}}</div><div class="stat-value">{{.Value}}</div></div>{{end}}
            </div>
          </div>
          {{end}}
        </div>
      </div>
    </div>
  </div>
{{end}}
</div>
{{end}}`

const tmplPage = `{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>rigdash</title>
<style>
body { background: #0d1117; color: #c9d1d9; font: 13px/1.4 system-ui, sans-serif; margin: 0; }
.action-bar { display: flex; gap: 8px; align-items: center; padding: 8px 12px; background: #161b22; }
.action-tab.active { background: #1f6feb; color: #fff; }
.rig-header-grid, .rig-main { display: grid; grid-template-columns: 140px repeat(14, minmax(50px, 1fr)) 3fr; gap: 4px; padding: 4px 12px; }
.header-cell { font-weight: 600; cursor: pointer; }
.header-cell.column-hidden { opacity: .5; }
.metric.column-hidden { visibility: hidden; }
.rig-row.selected { background: #1c2d41; }
.rig-name { cursor: pointer; font-weight: 600; }
.docker-popover { padding: 8px 24px; background: #161b22; }
.pop-content { display: flex; gap: 24px; width: 100%; }
.status-good, .service-ok, .shares-perfect, .shares-good { color: #56d364; }
.status-warm, .shares-warning { color: #e3b341; }
.status-hot, .service-bad, .shares-bad { color: #f85149; }
.status-unknown, .muted { color: #8b949e; }
.miner-details-compact { display: flex; flex-wrap: wrap; gap: 12px; }
.stat-label { font-size: 10px; color: #8b949e; }
.reset-btn.disabled { pointer-events: none; opacity: .4; }
.hidden { display: none; }
#cmd-output { white-space: pre-wrap; max-height: 300px; overflow: auto; background: #010409; }
</style>
</head>
<body>
<div id="toolbar" class="action-bar">
  <button data-action="start">Start</button>
  <button data-action="stop">Stop</button>
  <button data-action="restart">Restart</button>
  <button data-action="reboot">Reboot</button>
  <button data-miner-mode="cpu">Mode CPU</button>
  <button data-miner-mode="gpu">Mode GPU</button>
  <button data-post="command/open">Command</button>
  <button id="btn-flightsheets">Flightsheets</button>
</div>
<div id="rig-container">{{template "rigs" .}}</div>

<div id="cmd-modal" class="{{if not .Command.Open}}hidden{{end}}">
  <div>Send to <span id="cmd-target-count">{{.SelectedCount}}</span> rig(s)</div>
  <textarea id="cmd-input" rows="6" cols="80">{{.Command.Input}}</textarea>
  <button id="cmd-send">Send</button>
  <button data-post="command/clear">Clear</button>
  <button data-post="command/close">Close</button>
  <pre id="cmd-output">{{.Command.Output}}</pre>
</div>

<div id="fs-modal" class="hidden">
  <div id="fs-list"></div>
  <input id="fs-name" placeholder="name">
  <textarea id="fs-raw" rows="14" cols="80"></textarea>
  <button id="fs-new">New</button>
  <button id="fs-save">Save</button>
  <button id="fs-delete">Delete</button>
  <button id="fs-apply">Apply</button>
  <button id="fs-close">Close</button>
</div>

<script>
const base = location.pathname.replace(/\/$/, "");

async function post(path, body) {
  body = body || {};
  let res = await fetch(base + "/api/" + path, {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify(body)
  });
  let out = await res.json().catch(() => ({}));
  if (res.status === 409 && out.confirm) {
    if (!window.confirm(out.confirm)) return out;
    body.confirmed = true;
    res = await fetch(base + "/api/" + path, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(body)
    });
    out = await res.json().catch(() => ({}));
  }
  (out.alerts || []).forEach(a => alert(a));
  return out;
}

document.addEventListener("click", ev => {
  const el = ev.target.closest("[data-post],[data-rig],[data-popover],[data-mode],[data-action],[data-miner-mode]");
  if (!el) return;
  if (el.dataset.rig !== undefined) {
    ev.stopPropagation();
    post("select", {rig: el.dataset.rig, additive: ev.shiftKey || ev.ctrlKey || ev.metaKey});
  } else if (el.dataset.post) {
    ev.stopPropagation();
    post(el.dataset.post);
  } else if (el.dataset.mode) {
    post("mode", {mode: el.dataset.mode});
  } else if (el.dataset.action) {
    post("actions/" + el.dataset.action);
  } else if (el.dataset.minerMode) {
    post("miner-mode", {mode: el.dataset.minerMode});
  } else if (el.dataset.popover) {
    post("popover", {id: el.dataset.popover});
  }
});

document.getElementById("cmd-send").onclick = () =>
  post("command", {command: document.getElementById("cmd-input").value});

function fsForm() {
  return {name: document.getElementById("fs-name").value, content: document.getElementById("fs-raw").value};
}
function fsShow(st) {
  if (!st || !st.editor) return;
  const list = document.getElementById("fs-list");
  list.innerHTML = "";
  (st.editor.Sheets || []).forEach(fs => {
    const row = document.createElement("div");
    row.className = "fs-item" + (fs.FlightsheetId === st.editor.Selected ? " selected" : "");
    row.textContent = fs.FlightsheetId;
    row.onclick = async () => fsShow(await post("flightsheets/select", {id: fs.FlightsheetId}));
    list.appendChild(row);
  });
  document.getElementById("fs-name").value = st.editor.Name;
  document.getElementById("fs-raw").value = st.editor.Buffer;
}
document.getElementById("btn-flightsheets").onclick = async () => {
  post("command/close");
  document.getElementById("fs-modal").classList.remove("hidden");
  fsShow(await post("flightsheets/open"));
};
document.getElementById("fs-close").onclick = () => document.getElementById("fs-modal").classList.add("hidden");
document.getElementById("fs-new").onclick = async () => fsShow(await post("flightsheets/new", fsForm()));
document.getElementById("fs-save").onclick = async () => fsShow(await post("flightsheets/save", fsForm()));
document.getElementById("fs-delete").onclick = async () => fsShow(await post("flightsheets/delete"));
document.getElementById("fs-apply").onclick = async () => {
  const out = await post("flightsheets/apply", fsForm());
  if (!out.error) document.getElementById("fs-modal").classList.add("hidden");
};

const visible = id => !document.getElementById(id).classList.contains("hidden");
document.addEventListener("keydown", async e => {
  const mod = e.ctrlKey || e.metaKey;
  if (e.key === "Escape") {
    if (visible("cmd-modal")) post("command/close");
    document.getElementById("fs-modal").classList.add("hidden");
  } else if (mod && e.key === "Enter" && visible("cmd-modal")) {
    e.preventDefault();
    post("command", {command: document.getElementById("cmd-input").value});
  } else if (mod && e.key === "s") {
    e.preventDefault();
    if (visible("fs-modal")) fsShow(await post("flightsheets/save", fsForm()));
  } else if (mod && e.key === "a") {
    const tag = document.activeElement.tagName;
    if (tag !== "INPUT" && tag !== "TEXTAREA") {
      e.preventDefault();
      post("select-all");
    }
  }
});

function connect() {
  const proto = location.protocol === "https:" ? "wss://" : "ws://";
  const ws = new WebSocket(proto + location.host + base + "/ws");
  ws.onmessage = ev => {
    const msg = JSON.parse(ev.data);
    if (msg.rigs !== undefined) document.getElementById("rig-container").innerHTML = msg.rigs;
    if (msg.command) {
      document.getElementById("cmd-modal").classList.toggle("hidden", !msg.command.Open);
      document.getElementById("cmd-target-count").textContent = msg.selected;
      const out = document.getElementById("cmd-output");
      out.textContent = msg.command.Output;
      out.scrollTop = out.scrollHeight;
      if (msg.command.Open && document.activeElement !== document.getElementById("cmd-input")) {
        document.getElementById("cmd-input").value = msg.command.Input;
      }
    }
  };
  ws.onclose = () => setTimeout(connect, 5000);
}
connect();
</script>
</body>
</html>{{end}}`
