package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/p-blackswan/questplan/internal/assistant"
	"github.com/p-blackswan/questplan/internal/config"
	"github.com/p-blackswan/questplan/internal/llm"
	"github.com/p-blackswan/questplan/internal/retry"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

const planHelp = `Describe your project and answer the assistant's questions.
  /generate   turn the conversation into a plan and save it
  /reset      start over
  /help       show this help
  /quit       exit`

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".questctl_history")
}

func runPlan(cfg *config.Config, logger zerolog.Logger, args []string, out, errOut io.Writer) int {
	if hasHelpFlag(args) {
		fmt.Fprintln(out, usageFor("plan"))
		fmt.Fprintln(out, planHelp)
		return 0
	}
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	lang := fs.StringP("lang", "l", assistant.DefaultLanguage, "conversation language")
	outPath := fs.StringP("out", "o", "plan.json", "where /generate writes the plan")
	if err := fs.Parse(args); err != nil {
		return fail(errOut, err)
	}
	if !cfg.AIEnabled() {
		return fail(errOut, fmt.Errorf("no API key configured for AI_PROVIDER=%s", cfg.AIProvider))
	}

	asst, err := newAssistant(cfg, logger)
	if err != nil {
		return fail(errOut, err)
	}
	s := &planSession{assistant: asst, lang: *lang, outPath: *outPath, out: out}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	if f, err := os.Open(historyFile()); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile()); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, "questplan planner. Type /help for commands.")
	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return 0
			}
			return fail(errOut, fmt.Errorf("reading input: %w", err))
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		quit, err := s.handle(ctx, input)
		stop()
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
		}
		if quit {
			return 0
		}
	}
}

func newAssistant(cfg *config.Config, logger zerolog.Logger) (*assistant.Assistant, error) {
	apiKey := cfg.AnthropicAPIKey
	if strings.EqualFold(cfg.AIProvider, llm.ProviderOpenAI) {
		apiKey = cfg.OpenAIAPIKey
	}
	opts := []llm.Option{
		llm.WithHTTPClient(&http.Client{Timeout: cfg.AITimeout}),
		llm.WithLogger(logger),
	}
	if cfg.AIModel != "" {
		opts = append(opts, llm.WithModel(cfg.AIModel))
	}
	if cfg.AIBaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.AIBaseURL))
	}
	provider, err := llm.NewProvider(cfg.AIProvider, apiKey, opts...)
	if err != nil {
		return nil, err
	}
	catalog, err := assistant.LoadCatalog(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}
	return assistant.New(provider, catalog, nil, nil, assistant.Settings{
		ChatTemperature: cfg.ChatTemperature,
		ChatMaxTokens:   cfg.ChatMaxTokens,
		PlanTemperature: cfg.PlanTemperature,
		PlanMaxTokens:   cfg.PlanMaxTokens,
		MaxToolRounds:   1,
		Retry:           retry.DefaultConfig(),
	}, nil, logger), nil
}

// planSession is one planning conversation held in memory.
type planSession struct {
	assistant *assistant.Assistant
	lang      string
	outPath   string
	out       io.Writer
	messages  []llm.Message
}

// handle processes one line of input. It reports whether the session is over.
func (s *planSession) handle(ctx context.Context, input string) (bool, error) {
	switch strings.ToLower(input) {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/help":
		fmt.Fprintln(s.out, planHelp)
		return false, nil
	case "/reset":
		s.messages = nil
		fmt.Fprintln(s.out, "Conversation cleared.")
		return false, nil
	case "/generate":
		return false, s.generate(ctx)
	}
	if strings.HasPrefix(input, "/") {
		return false, fmt.Errorf("unknown command %s, try /help", input)
	}
	return false, s.say(ctx, input)
}

func (s *planSession) say(ctx context.Context, input string) error {
	msgs := append(append([]llm.Message(nil), s.messages...), llm.Message{Role: llm.RoleUser, Content: input})
	var reply strings.Builder
	var streamErr string
	err := s.assistant.Chat(ctx, assistant.ChatRequest{Messages: msgs, Language: s.lang}, func(e assistant.Event) error {
		switch e.Type {
		case assistant.EventToken:
			reply.WriteString(e.Text)
			fmt.Fprint(s.out, e.Text)
		case assistant.EventError:
			streamErr = e.Message
		}
		return nil
	})
	fmt.Fprintln(s.out)
	if err != nil {
		if streamErr != "" {
			return errors.New(streamErr)
		}
		return err
	}
	s.messages = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: reply.String()})
	return nil
}

func (s *planSession) generate(ctx context.Context) error {
	if len(s.messages) == 0 {
		return errors.New("nothing to plan yet, describe your project first")
	}
	fmt.Fprintln(s.out, "Generating plan...")
	plan, err := s.assistant.GeneratePlan(ctx, s.messages, s.lang)
	if err != nil {
		return err
	}
	if err := writePlan(s.outPath, plan); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %q to %s: %d tasks, %d XP, %.1f hours\n",
		plan.ProjectName, s.outPath, len(plan.Tasks), plan.TotalXP, plan.TotalTime)
	return nil
}

func writePlan(path string, plan *roadmap.Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

func readPlan(path string) (*roadmap.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Accept both saved plans and raw model output.
	plan, err := assistant.ParsePlan(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}
