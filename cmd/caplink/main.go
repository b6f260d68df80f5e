// caplink is the command-line client for a caplink server: list and call
// actions, read resources, render prompts, or hand the whole action set
// to a language model with `caplink chat`.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/caplink-proto/caplink/internal/bridge"
	"github.com/caplink-proto/caplink/pkg/client"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	timeout   time.Duration
	argsJSON  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "caplink",
	Short: "caplink protocol client",
	Long: `caplink is the command-line client for the caplink capability
protocol. It lists and invokes a server's actions, reads its resources,
renders its prompt templates, and can hand the action set to a language
model with "caplink chat".`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		viper.SetEnvPrefix("caplink")
		viper.AutomaticEnv()
		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8000"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "caplink server URL (default http://localhost:8000)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "per-call deadline")

	callCmd.Flags().StringVar(&argsJSON, "args", "{}", "action arguments as a JSON object")
	promptCmd.Flags().StringVar(&argsJSON, "args", "{}", "prompt arguments as a JSON object")

	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)
}

// withSession opens a session, runs fn, and closes the session.
func withSession(fn func(ctx context.Context, c *client.Client) error) error {
	ctx := context.Background()
	c := client.New(serverURL, client.WithCallTimeout(timeout))
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close(ctx) //nolint:errcheck
	return fn(ctx, c)
}

// parseArgs decodes the --args JSON object.
func parseArgs() (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, fmt.Errorf("--args must be a JSON object: %w", err)
	}
	return args, nil
}

// printJSON pretty-prints a raw result payload.
func printJSON(raw json.RawMessage) {
	var buf any
	if err := json.Unmarshal(raw, &buf); err != nil {
		fmt.Println(string(raw))
		return
	}
	out, _ := json.MarshalIndent(buf, "", "  ")
	fmt.Println(string(out))
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the server's registered actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, c *client.Client) error {
			actions, err := c.ListActions(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPARAMS\tDESCRIPTION")
			for _, a := range actions {
				fmt.Fprintf(w, "%s\t%d\t%s\n", a.Name, len(a.Parameters), a.Description)
			}
			return w.Flush()
		})
	},
}

var callCmd = &cobra.Command{
	Use:   "call <action>",
	Short: "Invoke an action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, cmdArgs []string) error {
		callArgs, err := parseArgs()
		if err != nil {
			return err
		}
		return withSession(func(ctx context.Context, c *client.Client) error {
			result, err := c.CallAction(ctx, cmdArgs[0], callArgs)
			if err != nil {
				return err
			}
			printJSON(result)
			return nil
		})
	},
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the server's resource templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, c *client.Client) error {
			resources, err := c.ListResources(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "URI TEMPLATE\tDESCRIPTION")
			for _, r := range resources {
				fmt.Fprintf(w, "%s\t%s\n", r.URITemplate, r.Description)
			}
			return w.Flush()
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <uri>",
	Short: "Read a resource by concrete URI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, cmdArgs []string) error {
		return withSession(func(ctx context.Context, c *client.Client) error {
			result, err := c.ReadResource(ctx, cmdArgs[0])
			if err != nil {
				return err
			}
			printJSON(result)
			return nil
		})
	},
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the server's prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, c *client.Client) error {
			prompts, err := c.ListPrompts(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPARAMS\tDESCRIPTION")
			for _, p := range prompts {
				fmt.Fprintf(w, "%s\t%d\t%s\n", p.Name, len(p.Parameters), p.Description)
			}
			return w.Flush()
		})
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt <name>",
	Short: "Render a prompt template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, cmdArgs []string) error {
		promptArgs, err := parseArgs()
		if err != nil {
			return err
		}
		return withSession(func(ctx context.Context, c *client.Client) error {
			messages, err := c.GetPrompt(ctx, cmdArgs[0], promptArgs)
			if err != nil {
				return err
			}
			for _, m := range messages {
				fmt.Printf("[%s] %s\n", m.Role, m.Content)
			}
			return nil
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Let a language model answer using the server's actions",
	Long: `chat sends your message to Gemini together with the server's
action descriptors. The model may call any number of actions (the calls
go through the normal protocol channel) before producing its answer.

Requires GEMINI_API_KEY in the environment or a .env file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, cmdArgs []string) error {
		return withSession(func(ctx context.Context, c *client.Client) error {
			model, err := bridge.NewGeminiModel(ctx,
				viper.GetString("gemini_api_key"),
				viper.GetString("bridge_model"),
			)
			if err != nil {
				return err
			}

			logger := zap.NewNop()
			if viper.GetBool("verbose") {
				logger, _ = zap.NewDevelopment()
			}

			b := bridge.New(c, model,
				bridge.WithMaxTurns(8),
				bridge.WithLogger(logger),
			)
			answer, err := b.Run(ctx, cmdArgs[0])
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("caplink", version)
	},
}
