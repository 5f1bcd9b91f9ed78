package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/crew/internal/agent"
	"github.com/nextlevelbuilder/crew/internal/background"
	"github.com/nextlevelbuilder/crew/internal/board"
	"github.com/nextlevelbuilder/crew/internal/bus"
	"github.com/nextlevelbuilder/crew/internal/config"
	"github.com/nextlevelbuilder/crew/internal/providers"
	"github.com/nextlevelbuilder/crew/internal/skills"
	"github.com/nextlevelbuilder/crew/internal/store"
	"github.com/nextlevelbuilder/crew/internal/team"
	"github.com/nextlevelbuilder/crew/internal/todo"
	"github.com/nextlevelbuilder/crew/internal/tools"
	"github.com/nextlevelbuilder/crew/internal/tracing"
)

const (
	colorCyan  = "\033[36m"
	colorDim   = "\033[2m"
	colorReset = "\033[0m"
)

var sessionName string

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the lead agent REPL",
		Run: func(cmd *cobra.Command, args []string) {
			runChat()
		},
	}
	cmd.Flags().StringVar(&sessionName, "session", "default", "session name for history persistence")
	return cmd
}

// runtime holds everything one interactive session needs.
type runtime struct {
	cfg       *config.Config
	provider  providers.Provider
	board     *board.Store
	bus       *bus.Bus
	manager   *team.Manager
	handshake *team.Handshake
	runner    *background.Runner
	catalog   *skills.Catalog
	loop      *agent.Loop
	sessions  *store.SessionStore
	shutdown  func(context.Context) error
}

func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("API_KEY not set")
	}
	if err := os.MkdirAll(cfg.Workspace, 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	shutdown, err := tracing.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		return nil, err
	}

	var opts []providers.AnthropicOption
	if cfg.Provider.Model != "" {
		opts = append(opts, providers.WithAnthropicModel(cfg.Provider.Model))
	}
	if cfg.Provider.BaseURL != "" {
		opts = append(opts, providers.WithAnthropicBaseURL(cfg.Provider.BaseURL))
	}
	if cfg.Provider.MaxTokens > 0 {
		opts = append(opts, providers.WithAnthropicMaxTokens(cfg.Provider.MaxTokens))
	}
	if cfg.Provider.RateLimitRPS > 0 {
		opts = append(opts, providers.WithRateLimit(cfg.Provider.RateLimitRPS))
	}
	provider := providers.NewAnthropicProvider(cfg.Provider.APIKey, opts...)

	boardStore, err := board.NewStore(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	msgBus, err := bus.New(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	runner := background.NewRunner(cfg.Workspace)

	catalog := skills.NewCatalog(cfg.SkillsDir)
	go func() {
		if err := catalog.Watch(ctx); err != nil {
			slog.Warn("skills watcher stopped", "error", err)
		}
	}()

	var manager *team.Manager
	starter := team.StarterFunc(func(name, role, prompt string) {
		reg := teammateRegistry(cfg, boardStore, msgBus, name)
		sched := team.NewScheduler(name, role, prompt, manager, msgBus, boardStore,
			provider, reg, cfg.Provider.Model, cfg.Team)
		go sched.Run(ctx)
	})
	manager, err = team.NewManager(cfg.Workspace, cfg.Team.Name, starter)
	if err != nil {
		return nil, err
	}
	handshake := team.NewHandshake(msgBus)

	callLog := agent.NewCallLog(cfg.Workspace, team.LeadName)
	tracker := todo.NewTracker()
	registry := leadRegistry(cfg, provider, boardStore, msgBus, manager, handshake, runner, catalog, tracker, callLog)

	loop := agent.NewLoop(agent.LoopConfig{
		Provider:  provider,
		Model:     cfg.Provider.Model,
		Registry:  registry,
		Bus:       msgBus,
		Runner:    runner,
		Handshake: handshake,
		Manager:   manager,
		Todos:     tracker,
		Compactor: agent.NewCompactor(provider, cfg.Provider.Model, cfg.Workspace),
		CallLog:   callLog,
		System: agent.BuildSystemPrompt(agent.SystemPromptConfig{
			Workspace: cfg.Workspace,
			TeamName:  cfg.Team.Name,
			Skills:    catalog.Descriptions(),
		}),
	})

	sessions, err := store.Open(filepath.Join(cfg.Workspace, ".crew", "sessions.db"))
	if err != nil {
		return nil, err
	}
	if history, err := sessions.LoadHistory(sessionName); err != nil {
		slog.Warn("session restore failed", "session", sessionName, "error", err)
	} else if len(history) > 0 {
		loop.SetMessages(history)
		slog.Info("session restored", "session", sessionName, "messages", len(history))
	}

	return &runtime{
		cfg: cfg, provider: provider, board: boardStore, bus: msgBus,
		manager: manager, handshake: handshake, runner: runner,
		catalog: catalog, loop: loop, sessions: sessions, shutdown: shutdown,
	}, nil
}

// leadRegistry assembles the lead agent's full toolset.
func leadRegistry(cfg *config.Config, provider providers.Provider, boardStore *board.Store,
	msgBus *bus.Bus, manager *team.Manager, handshake *team.Handshake,
	runner *background.Runner, catalog *skills.Catalog, tracker *todo.Tracker,
	callLog *agent.CallLog) *tools.Registry {

	workdir := tools.NewWorkdir(cfg.Workspace)
	archive := func(query, result string) {
		if path, err := agent.SaveResult(cfg.OutputDir, query, result); err == nil {
			fmt.Printf("%sSaved to %s%s\n", colorDim, path, colorReset)
		}
	}
	tavily := tools.NewTavilyClient(cfg.Search.BaseURL, cfg.Search.APIKey)

	reg := tools.NewRegistry()
	reg.Register(tools.NewBashTool(workdir))
	reg.Register(tools.NewReadFileTool(workdir))
	reg.Register(tools.NewWriteFileTool(workdir))
	reg.Register(tools.NewEditFileTool(workdir))
	reg.Register(tools.NewSetWorkdirTool(workdir))
	reg.Register(tools.NewTodoWriteTool(tracker))
	reg.Register(tools.NewSubagentTool(provider, workdir, cfg.Provider.Model))
	reg.Register(tools.NewLoadSkillTool(catalog, callLog.SkillLoad))
	reg.Register(tools.NewCompressTool())
	reg.Register(tools.NewBackgroundRunTool(runner))
	reg.Register(tools.NewCheckBackgroundTool(runner))
	reg.Register(tools.NewTaskCreateTool(boardStore))
	reg.Register(tools.NewTaskGetTool(boardStore))
	reg.Register(tools.NewTaskUpdateTool(boardStore))
	reg.Register(tools.NewTaskListTool(boardStore))
	reg.Register(tools.NewSpawnTeammateTool(manager))
	reg.Register(tools.NewListTeammatesTool(manager))
	reg.Register(tools.NewSendMessageTool(msgBus, team.LeadName))
	reg.Register(tools.NewReadInboxTool(msgBus, team.LeadName))
	reg.Register(tools.NewBroadcastTool(msgBus, manager, team.LeadName))
	reg.Register(tools.NewShutdownRequestTool(handshake))
	reg.Register(tools.NewPlanApprovalTool(handshake))
	reg.Register(tools.NewIdleTool(true))
	reg.Register(tools.NewClaimTaskTool(boardStore, team.LeadName))
	reg.Register(tools.NewSearchTool(tavily, archive))
	reg.Register(tools.NewNewsTool(tavily, archive))
	reg.Register(tools.NewFactCheckTool(tavily, archive))
	return reg
}

// teammateRegistry assembles the reduced toolset teammates run with.
func teammateRegistry(cfg *config.Config, boardStore *board.Store, msgBus *bus.Bus, name string) *tools.Registry {
	workdir := tools.NewWorkdir(cfg.Workspace)

	reg := tools.NewRegistry()
	reg.Register(tools.NewBashTool(workdir))
	reg.Register(tools.NewReadFileTool(workdir))
	reg.Register(tools.NewWriteFileTool(workdir))
	reg.Register(tools.NewEditFileTool(workdir))
	reg.Register(tools.NewSendMessageTool(msgBus, name))
	reg.Register(tools.NewPlanSubmitTool(msgBus, name, team.LeadName))
	reg.Register(tools.NewIdleTool(false))
	reg.Register(tools.NewClaimTaskTool(boardStore, name))
	return reg
}

func runChat() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := buildRuntime(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.sessions.Close()
	defer rt.shutdown(context.Background())

	rt.loop.OnToolResult = func(name string, result *tools.Result) {
		out := result.ForUser
		if out == "" {
			out = result.ForLLM
		}
		fmt.Printf("%s[%s]%s %s\n", colorDim, name, colorReset, out)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          colorCyan + "crew> " + colorReset,
		HistoryFile:     filepath.Join(rt.cfg.Workspace, ".crew", "repl_history"),
		InterruptPrompt: "^C",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("crew %s — team %q, workspace %s\n", Version, rt.cfg.Team.Name, rt.cfg.Workspace)
	fmt.Println("Empty line, 'q' or 'exit' quits. Commands: /compact /tasks /team /inbox")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		input := strings.TrimSpace(line)
		if input == "" || input == "q" || input == "exit" {
			break
		}
		if strings.HasPrefix(input, "/") {
			rt.replCommand(ctx, input)
			continue
		}

		out, err := rt.loop.Process(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", out)

		if path, err := agent.SaveResult(rt.cfg.OutputDir, input, out); err == nil {
			fmt.Printf("%sSaved to %s%s\n", colorDim, path, colorReset)
		}
		if err := rt.sessions.SaveHistory(sessionName, rt.loop.Messages()); err != nil {
			slog.Warn("session save failed", "error", err)
		}
	}
	fmt.Println("Goodbye.")
}

func (rt *runtime) replCommand(ctx context.Context, input string) {
	switch input {
	case "/compact":
		if err := rt.loop.CompactNow(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Println("Context compacted.")
	case "/tasks":
		tasks, err := rt.board.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Println(board.RenderList(tasks))
	case "/team":
		out, err := rt.manager.ListAll()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Println(out)
	case "/inbox":
		msgs, err := rt.bus.ReadInbox(team.LeadName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		if len(msgs) == 0 {
			fmt.Println("No new messages.")
			return
		}
		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", m.Type, m.From, m.Content)
		}
	default:
		fmt.Printf("Unknown command: %s\n", input)
	}
}
