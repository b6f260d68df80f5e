// Package sample registers a demonstration capability set: a handful of
// actions, resources, and prompt templates exercising every protocol
// feature. The server binary installs it by default so a fresh checkout
// has something to call; production deployments disable it and register
// their own capabilities instead.
package sample

import (
	"context"
	"fmt"
	"strings"

	"github.com/caplink-proto/caplink/internal/capability"
	"github.com/caplink-proto/caplink/internal/server"
	"github.com/caplink-proto/caplink/pkg/wire"
)

// User is a row of the demo user directory.
type User struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Skills     []string `json:"skills"`
}

// users is the demo directory shared by the resource and action handlers.
func users() []User {
	return []User{
		{ID: "u001", Name: "Taro Tanaka", Department: "engineering", Skills: []string{"Go", "caplink"}},
		{ID: "u002", Name: "Hanako Yamada", Department: "sales", Skills: []string{"Excel", "negotiation"}},
		{ID: "u003", Name: "Jiro Sato", Department: "engineering", Skills: []string{"JavaScript", "React"}},
	}
}

// Register installs the full demo set into reg. It is called once at
// process start, before the server begins serving.
func Register(reg *capability.Registry) error {
	steps := []func(*capability.Registry) error{
		registerActions,
		registerResources,
		registerPrompts,
	}
	for _, step := range steps {
		if err := step(reg); err != nil {
			return err
		}
	}
	return nil
}

func registerActions(reg *capability.Registry) error {
	if err := reg.RegisterAction("greet", "Return a simple greeting.",
		capability.NewSchema(capability.String("name", "who to greet")),
		func(ctx context.Context, args map[string]any) (any, error) {
			return fmt.Sprintf("Hello, %s!", capability.Str(args, "name")), nil
		},
	); err != nil {
		return err
	}

	if err := reg.RegisterAction("add", "Add two numbers.",
		capability.NewSchema(
			capability.Integer("a", "first addend"),
			capability.Integer("b", "second addend"),
		),
		func(ctx context.Context, args map[string]any) (any, error) {
			return capability.Int(args, "a") + capability.Int(args, "b"), nil
		},
	); err != nil {
		return err
	}

	return reg.RegisterAction("search_users", "Find users by department.",
		capability.NewSchema(capability.String("department", "department name, e.g. \"engineering\"")),
		func(ctx context.Context, args map[string]any) (any, error) {
			dept := capability.Str(args, "department")
			var out []User
			for _, u := range users() {
				if u.Department == dept {
					out = append(out, u)
				}
			}
			return out, nil
		},
	)
}

func registerResources(reg *capability.Registry) error {
	if err := reg.RegisterResource("config://app", "Static application configuration.",
		func(ctx context.Context, _ map[string]string) (any, error) {
			return map[string]any{
				"app_name": "caplink demo",
				"version":  "1.0.0",
				"debug":    true,
			}, nil
		},
	); err != nil {
		return err
	}

	if err := reg.RegisterResource("data://users", "The full user directory.",
		func(ctx context.Context, _ map[string]string) (any, error) {
			return users(), nil
		},
	); err != nil {
		return err
	}

	if err := reg.RegisterResource("user://{user_id}", "A single user by ID, e.g. user://u001.",
		func(ctx context.Context, params map[string]string) (any, error) {
			id := params["user_id"]
			for _, u := range users() {
				if u.ID == id {
					return u, nil
				}
			}
			return nil, fmt.Errorf("user %s not found", id)
		},
	); err != nil {
		return err
	}

	if err := reg.RegisterResource("weather://{city}/{date}", "Weather for a city on a date, e.g. weather://tokyo/2024-01-15.",
		func(ctx context.Context, params map[string]string) (any, error) {
			// A real deployment would call a weather API here.
			return map[string]any{
				"city":        params["city"],
				"date":        params["date"],
				"temperature": 15,
				"condition":   "sunny",
				"humidity":    45,
			}, nil
		},
	); err != nil {
		return err
	}

	return reg.RegisterResource("status://server", "Live server status with the current request ID.",
		func(ctx context.Context, _ map[string]string) (any, error) {
			return map[string]any{
				"status":     "running",
				"request_id": server.RequestIDFrom(ctx),
			}, nil
		},
	)
}

func registerPrompts(reg *capability.Registry) error {
	if err := reg.RegisterPrompt("explain_topic", "Ask for a beginner-friendly explanation of a topic.",
		capability.NewSchema(capability.String("topic", "the topic to explain")),
		func(ctx context.Context, args map[string]any) (any, error) {
			return fmt.Sprintf("Explain %q in terms a beginner can follow.", capability.Str(args, "topic")), nil
		},
	); err != nil {
		return err
	}

	if err := reg.RegisterPrompt("code_review", "Request a review of a code snippet.",
		capability.NewSchema(
			capability.String("language", "programming language of the snippet"),
			capability.String("code", "the code under review"),
			capability.Optional(capability.String("focus", "review angle; defaults to \"general\"")),
		),
		func(ctx context.Context, args map[string]any) (any, error) {
			focus := capability.StrOr(args, "focus", "general")
			return fmt.Sprintf(
				"Review the following %s code with particular attention to %s.\n\n```%s\n%s\n```\n",
				capability.Str(args, "language"), focus,
				capability.Str(args, "language"), capability.Str(args, "code"),
			), nil
		},
	); err != nil {
		return err
	}

	if err := reg.RegisterPrompt("roleplay_teacher", "Set up the model as a subject teacher via conversation history.",
		capability.NewSchema(capability.String("subject", "the subject to teach")),
		func(ctx context.Context, args map[string]any) (any, error) {
			subject := capability.Str(args, "subject")
			return []wire.PromptMessage{
				{Role: wire.RoleUser, Content: fmt.Sprintf("You are an excellent %s teacher. Answer your student's questions carefully.", subject)},
				{Role: wire.RoleAssistant, Content: fmt.Sprintf("Understood. As your %s teacher, ask me anything.", subject)},
			}, nil
		},
	); err != nil {
		return err
	}

	return reg.RegisterPrompt("generate_report", "Request a report with a given structure.",
		capability.NewSchema(
			capability.String("title", "report title"),
			capability.Param{Name: "sections", Type: capability.TypeArray, Required: true, Description: "section headings to include"},
			capability.Param{Name: "include_summary", Type: capability.TypeBoolean, Description: "append a closing summary"},
		),
		func(ctx context.Context, args map[string]any) (any, error) {
			var b strings.Builder
			fmt.Fprintf(&b, "Write a report titled %q with the following sections:\n", capability.Str(args, "title"))
			for _, s := range capability.Strings(args, "sections") {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			if capability.Bool(args, "include_summary", true) {
				b.WriteString("\nFinish with a summary.\n")
			}
			return b.String(), nil
		},
	)
}
