package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/webpilot/pkg/agent"
	"github.com/entrhq/webpilot/pkg/browserbase"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/llm/openai"
	"github.com/entrhq/webpilot/pkg/tools/browser"
)

// app is the fully wired process: one pool, one dispatcher, one driver.
type app struct {
	pool        *browser.Pool
	provisioner *browser.PlaywrightProvisioner
	dispatcher  *browser.Dispatcher
	driver      *agent.Driver
}

// newApp wires every component from cfg. Secrets must already be checked.
func newApp(cfg *config.Config) (*app, error) {
	client, err := browserbase.NewClient(cfg.Browserbase.APIKey, cfg.Browserbase.ProjectID,
		browserbase.WithBaseURL(cfg.Browserbase.BaseURL),
		browserbase.WithConnectURL(cfg.Browserbase.ConnectURL),
		browserbase.WithRequestTimeout(cfg.Browserbase.RequestTimeout),
		browserbase.WithSessionTimeout(cfg.Browserbase.SessionTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Browserbase client: %w", err)
	}

	provider, err := openai.NewProvider(cfg.LLM.APIKey,
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	timeouts := timeoutsFromConfig(cfg.Tools)

	provisioner := browser.NewPlaywrightProvisioner(browser.PlaywrightConfig{
		Client:    client,
		Assistant: browser.NewAssistant(provider.CloneWithModel(cfg.LLM.AssistModel)),
		Timeouts:  timeouts,
		SelfHeal:  cfg.Tools.SelfHeal,
	})
	pool := browser.NewPool(provisioner)

	policy, err := browser.NewNavigationPolicy(cfg.Tools.AllowedHosts, cfg.Tools.BlockedHosts)
	if err != nil {
		return nil, fmt.Errorf("invalid navigation policy: %w", err)
	}

	deps := browser.Deps{
		Pool:       pool,
		Sessions:   client,
		Summarizer: browser.NewLLMSummarizer(provider.CloneWithModel(cfg.LLM.SummaryModel), cfg.LLM.SummaryMaxTokens),
		Policy:     policy,
		Timeouts:   timeouts,
		SearchURL:  cfg.Tools.SearchURL,
	}
	dispatcher := browser.NewDispatcher(cfg.Tools.MaxConcurrent, browser.NewToolset(deps)...)

	driver, err := agent.NewDriver(provider, dispatcher,
		agent.WithMaxSteps(cfg.Agent.MaxSteps),
		agent.WithSystemPrompt(cfg.Agent.SystemPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation driver: %w", err)
	}

	return &app{
		pool:        pool,
		provisioner: provisioner,
		dispatcher:  dispatcher,
		driver:      driver,
	}, nil
}

// close releases every open handle and stops the Playwright driver.
func (a *app) close(ctx context.Context) error {
	return errors.Join(a.pool.CloseAll(ctx), a.provisioner.Shutdown())
}

func timeoutsFromConfig(cfg config.ToolsConfig) browser.Timeouts {
	return browser.Timeouts{
		Action:      cfg.ActionTimeout,
		Navigation:  cfg.NavigationTimeout,
		Load:        cfg.LoadTimeout,
		NetworkIdle: cfg.NetworkIdleTimeout,
		Selector:    cfg.SelectorTimeout,
		DOMSettle:   cfg.DOMSettleTimeout,
	}
}
