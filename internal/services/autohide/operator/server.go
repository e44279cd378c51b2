// Package operator serves the autohide operator commands as MCP tools over
// streamable HTTP. Callers authenticate with a bearer token whose role
// decides whether placement tools may move the host.
package operator

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/louisbranch/autohidehost/internal/services/autohide/commands"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "autohide-operator"
	serverVersion = "1.0.0"
)

// Executor runs a command line on the goroutine that owns the engine.
type Executor interface {
	Execute(ctx context.Context, caller commands.Caller, line string) ([]string, error)
}

// CommandResult is the structured output of every tool.
type CommandResult struct {
	Lines []string `json:"lines"`
}

// HistoryInput selects how many journal records to list.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of records, newest first"`
}

type claimsKey struct{}

// Handler authenticates requests and dispatches them to the MCP server for
// the caller's role.
type Handler struct {
	verifier *Verifier
	host     *mcp.Server
	observer *mcp.Server
	mcp      http.Handler
	logf     func(string, ...any)
}

// NewHandler builds the operator HTTP handler.
func NewHandler(exec Executor, verifier *Verifier, logf func(string, ...any)) *Handler {
	if logf == nil {
		logf = log.Printf
	}
	h := &Handler{
		verifier: verifier,
		host:     newServer(exec, true),
		observer: newServer(exec, false),
		logf:     logf,
	}
	h.mcp = mcp.NewStreamableHTTPHandler(h.serverFor, &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true})
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "operator token is required", http.StatusUnauthorized)
		return
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		h.logf("operator: rejected token: %v", err)
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	h.mcp.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
}

func (h *Handler) serverFor(r *http.Request) *mcp.Server {
	claims, ok := r.Context().Value(claimsKey{}).(Claims)
	if !ok {
		return nil
	}
	if claims.Caller().Privileged {
		return h.host
	}
	return h.observer
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func newServer(exec Executor, privileged bool) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	caller := commands.Caller{Name: "mcp observer"}
	if privileged {
		caller = commands.Caller{Name: "mcp host", Privileged: true}
	}

	mcp.AddTool(server, &mcp.Tool{Name: "hide_host", Description: "Hide the host actor using the configured method."},
		commandHandler(exec, caller, commands.NameHide))
	mcp.AddTool(server, &mcp.Tool{Name: "show_host", Description: "Return the host actor to the farm and make it visible."},
		commandHandler(exec, caller, commands.NameShow))
	mcp.AddTool(server, &mcp.Tool{Name: "toggle_host", Description: "Flip host visibility."},
		commandHandler(exec, caller, commands.NameToggle))
	mcp.AddTool(server, &mcp.Tool{Name: "status", Description: "Report presence, participants, and transition state."},
		commandHandler(exec, caller, commands.NameStatus))
	mcp.AddTool(server, &mcp.Tool{Name: "reload_config", Description: "Re-read the mod options file."},
		commandHandler(exec, caller, commands.NameReload))
	mcp.AddTool(server, &mcp.Tool{Name: "sleep_debug", Description: "Report host and participant sleep readiness in detail."},
		commandHandler(exec, caller, commands.NameSleepDebug))
	mcp.AddTool(server, &mcp.Tool{Name: "history", Description: "List recent day-transition attempts."},
		historyHandler(exec, caller))
	return server
}

func commandHandler(exec Executor, caller commands.Caller, line string) mcp.ToolHandlerFor[struct{}, CommandResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, CommandResult, error) {
		return run(ctx, exec, caller, line)
	}
}

func historyHandler(exec Executor, caller commands.Caller) mcp.ToolHandlerFor[HistoryInput, CommandResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, CommandResult, error) {
		line := commands.NameHistory
		if input.Limit > 0 {
			line += " " + strconv.Itoa(input.Limit)
		}
		return run(ctx, exec, caller, line)
	}
}

func run(ctx context.Context, exec Executor, caller commands.Caller, line string) (*mcp.CallToolResult, CommandResult, error) {
	lines, err := exec.Execute(ctx, caller, line)
	result := CommandResult{Lines: lines}
	text := &mcp.TextContent{Text: strings.Join(lines, "\n")}
	if err != nil {
		return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{text}}, result, nil
	}
	return &mcp.CallToolResult{Content: []mcp.Content{text}}, result, nil
}
