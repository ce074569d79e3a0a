package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-booking-agent/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-agent/internal/config"
	"github.com/wolfman30/clinic-booking-agent/internal/conversation"
)

// llmtest sends one tool-enabled request to each configured provider and
// prints whether it answered with text or a tool call.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	only := flag.String("provider", "", "test a single provider (bedrock, gemini, openai)")
	flag.Parse()

	cfg := appconfig.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	req := probeRequest(cfg)

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("LLM Provider Test")
	fmt.Println(strings.Repeat("=", 60))

	names := []string{bootstrap.ProviderBedrock, bootstrap.ProviderGemini, bootstrap.ProviderOpenAI}
	if *only != "" {
		names = []string{*only}
	}
	for i, name := range names {
		fmt.Printf("\n[%d] %s\n", i+1, name)
		client, err := bootstrap.BuildProviderClient(ctx, cfg, name)
		if err != nil {
			fmt.Printf("    skipped: %v\n", err)
			continue
		}
		start := time.Now()
		resp, err := client.Complete(ctx, req)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			fmt.Printf("    error after %v: %v\n", elapsed, err)
			continue
		}
		fmt.Printf("    ok in %v (tokens in=%d out=%d, stop=%s)\n",
			elapsed, resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.StopReason)
		for _, call := range resp.ToolCalls {
			fmt.Printf("    tool call %s %s(%v)\n", call.ID, call.Name, call.Arguments)
		}
		if resp.Text != "" {
			fmt.Printf("    %s\n", resp.Text)
		}
	}
}

func probeRequest(cfg *appconfig.Config) conversation.LLMRequest {
	return conversation.LLMRequest{
		System: []string{
			"You are a clinic booking assistant. Use the list_doctors tool to answer questions about doctors.",
		},
		Messages: []conversation.ChatMessage{
			{Role: conversation.ChatRoleUser, Content: "Which cardiologists can I see?"},
		},
		Tools: []conversation.ToolSpec{{
			Name:        "list_doctors",
			Description: "List doctors, optionally filtered by specialization.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"specialization": map[string]any{
						"type":        "string",
						"description": "Specialization to filter by",
					},
				},
			},
		}},
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
	}
}
