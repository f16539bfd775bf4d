//go:build !windows

package browser_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/browser"
	"github.com/changkevin51/Music-Downloader/internal/core"
)

// devtoolsStub answers the DevTools calls chromedp makes to attach to a tab,
// load one page holding a single <h1>, query it, and close the browser.
type devtoolsStub struct {
	pidFile string
	t       *testing.T
}

type cdpMessage struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    any             `json:"result,omitempty"`
}

const stubDocument = `{"root":{"nodeId":1,"backendNodeId":1,"nodeType":9,"nodeName":"#document","localName":"","nodeValue":"",
"childNodeCount":1,"frameId":"F1","children":[{"nodeId":2,"parentId":1,"backendNodeId":2,"nodeType":1,"nodeName":"H1",
"localName":"h1","nodeValue":"","attributes":["class","title"],"childNodeCount":1,"children":[{"nodeId":3,"parentId":2,
"backendNodeId":3,"nodeType":3,"nodeName":"#text","localName":"","nodeValue":"Blinding Lights"}]}]}}`

func (d *devtoolsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()

	send := func(msg cdpMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			d.t.Errorf("marshal: %v", err)
			return
		}
		_ = wsutil.WriteServerText(conn, data)
	}
	event := func(session, method, params string) {
		send(cdpMessage{SessionID: session, Method: method, Params: json.RawMessage(params)})
	}

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var req cdpMessage
		if err := json.Unmarshal(data, &req); err != nil {
			d.t.Errorf("unmarshal %s: %v", data, err)
			return
		}

		var result any = struct{}{}
		var after func()
		switch req.Method {
		case "Target.setDiscoverTargets":
			if req.SessionID == "" {
				after = func() {
					event("", "Target.targetCreated",
						`{"targetInfo":{"targetId":"T1","type":"page","title":"","url":"about:blank","attached":false,"canAccessOpener":false}}`)
				}
			}
		case "Target.attachToTarget":
			result = map[string]string{"sessionId": "S1"}
		case "Runtime.enable":
			after = func() {
				event("S1", "Runtime.executionContextCreated",
					`{"context":{"id":1,"origin":"","name":"","uniqueId":"u1","auxData":{"frameId":"F1","isDefault":true}}}`)
			}
		case "Runtime.evaluate":
			result = json.RawMessage(`{"result":{"type":"object","className":"Window"}}`)
		case "Page.navigate":
			var params struct {
				URL string `json:"url"`
			}
			_ = json.Unmarshal(req.Params, &params)
			result = map[string]string{"frameId": "F1", "loaderId": "L1"}
			after = func() {
				event("S1", "Page.frameNavigated",
					fmt.Sprintf(`{"frame":{"id":"F1","loaderId":"L1","url":%q,"domainAndRegistry":"","securityOrigin":"","mimeType":"text/html"}}`, params.URL))
				event("S1", "Page.lifecycleEvent", `{"frameId":"F1","loaderId":"L1","name":"init","timestamp":1}`)
				event("S1", "DOM.documentUpdated", `{}`)
				event("S1", "Page.loadEventFired", `{"timestamp":2}`)
			}
		case "DOM.getDocument":
			result = json.RawMessage(stubDocument)
		case "DOM.querySelectorAll":
			var params struct {
				Selector string `json:"selector"`
			}
			_ = json.Unmarshal(req.Params, &params)
			ids := []int{}
			if params.Selector == "h1" {
				ids = append(ids, 2)
			}
			result = map[string][]int{"nodeIds": ids}
		case "Browser.close":
			after = d.killBrowser
		}

		send(cdpMessage{ID: req.ID, SessionID: req.SessionID, Result: result})
		if after != nil {
			after()
		}
	}
}

func (d *devtoolsStub) killBrowser() {
	if pid, err := readPID(d.pidFile); err == nil {
		_ = syscall.Kill(pid, syscall.SIGTERM)
	}
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// fakeChrome writes a script that records its pid, announces the stub's
// DevTools endpoint the way Chrome does, and then idles until killed.
func fakeChrome(t *testing.T) (execPath, pidFile string) {
	t.Helper()

	dir := t.TempDir()
	pidFile = filepath.Join(dir, "chrome.pid")
	stub := &devtoolsStub{pidFile: pidFile, t: t}
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/devtools/browser/stub"
	script := fmt.Sprintf("#!/bin/sh\necho $$ > %q\necho \"DevTools listening on %s\" >&2\nexec sleep 30\n", pidFile, wsURL)
	execPath = filepath.Join(dir, "chrome")
	if err := os.WriteFile(execPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake chrome: %v", err)
	}
	return execPath, pidFile
}

func chromeConfig(execPath string) *core.BrowserConfig {
	config := core.DefaultConfig().Browser
	config.ExecPath = execPath
	config.LaunchTimeout = 10 * time.Second
	config.PollInterval = 5 * time.Millisecond
	return &config
}

func TestChromeLauncher_Session(t *testing.T) {
	execPath, pidFile := fakeChrome(t)
	launcher := browser.NewChromeLauncher(chromeConfig(execPath), zap.NewNop())

	// The launch context ends right away; the browser must not go with it.
	launchCtx, cancel := context.WithCancel(context.Background())
	session, err := launcher.Launch(launchCtx)
	cancel()
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	pid, err := readPID(pidFile)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if !processAlive(pid) {
		t.Fatal("browser process exited after Launch returned")
	}

	ctx, cancelRun := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRun()

	if err := session.Navigate(ctx, "https://open.spotify.com/track/abc"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if err := session.WaitFor(ctx, "h1", time.Second); err != nil {
		t.Fatalf("WaitFor(h1) error = %v", err)
	}
	if err := session.WaitFor(ctx, "#missing", 50*time.Millisecond); !errors.Is(err, browser.ErrTimeout) {
		t.Errorf("WaitFor(#missing) error = %v, want ErrTimeout", err)
	}

	elements, err := session.FindElements(ctx, "h1")
	if err != nil {
		t.Fatalf("FindElements() error = %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("FindElements() returned %d elements, want 1", len(elements))
	}
	if value, ok, _ := elements[0].Attribute(ctx, "class"); !ok || value != "title" {
		t.Errorf("Attribute(class) = %q, %v", value, ok)
	}

	if err := session.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if processAlive(pid) {
		t.Error("browser process still running after Close")
	}
	if err := session.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := session.Navigate(ctx, "https://example.com"); !errors.Is(err, browser.ErrClosed) {
		t.Errorf("Navigate() after Close error = %v, want ErrClosed", err)
	}
}

func TestChromeLauncher_LaunchFailure(t *testing.T) {
	config := chromeConfig(filepath.Join(t.TempDir(), "missing-chrome"))
	launcher := browser.NewChromeLauncher(config, zap.NewNop())

	if _, err := launcher.Launch(context.Background()); err == nil {
		t.Fatal("Launch() with a missing executable should fail")
	}
}
