package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/minuted/internal/config"
	"github.com/kalambet/minuted/internal/index"
	"github.com/kalambet/minuted/internal/rag"
)

// --- index ---

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a file or directory into the knowledge base",
	Long: `Index a file or directory into the knowledge base.

Examples:
  minuted index ./notes.md
  minuted index ./docs --recursive
  minuted index ./report.pdf --chunk-size 800 --overlap 80`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		overlap := -1
		if cmd.Flags().Changed("overlap") {
			overlap, _ = cmd.Flags().GetInt("overlap")
		}

		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"path":      absPath,
			"recursive": recursive,
		}
		if chunkSize > 0 {
			req["chunk_size"] = chunkSize
		}
		if overlap >= 0 {
			req["overlap"] = overlap
		}

		resp, err := client.post(cmd.Context(), "/index", req)
		if err != nil {
			return err
		}

		var result struct {
			Documents []index.Document `json:"documents"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, doc := range result.Documents {
			printSuccess("Indexed %s (%d chunks, doc %s)", doc.Filename, doc.ChunkCount, doc.DocID)
		}
		if len(result.Documents) == 0 {
			printWarning("No indexable files found")
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().Bool("recursive", false, "recurse into subdirectories")
	indexCmd.Flags().Int("chunk-size", 0, "chunk size in characters (default from config)")
	indexCmd.Flags().Int("overlap", 0, "chunk overlap in characters (default from config)")
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/search", map[string]any{
			"query":     query,
			"n_results": limit,
		})
		if err != nil {
			return err
		}

		var result struct {
			Results []index.Passage `json:"results"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for i, p := range result.Results {
			fmt.Printf("\n%s [%s, distance: %.3f]\n",
				colorize(colorBold, fmt.Sprintf("Result %d", i+1)),
				p.Source.Filename,
				p.Distance,
			)
			text := p.Text
			if len(text) > 500 {
				text = text[:500] + "..."
			}
			fmt.Printf("  %s\n", text)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 5, "maximum number of results")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the knowledge base",
	Long: `Answer a question from the knowledge base.

Examples:
  minuted ask "What is the Q2 deadline?"
  minuted ask "Who owns the rollout?" --context ./transcript.txt
  minuted ask "What changed?" --attach ./diff-notes.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		contextFile, _ := cmd.Flags().GetString("context")
		attachments, _ := cmd.Flags().GetStringSlice("attach")

		meetingContext := ""
		if contextFile != "" {
			data, err := os.ReadFile(contextFile)
			if err != nil {
				return fmt.Errorf("reading context file: %w", err)
			}
			meetingContext = string(data)
		}

		absAttachments := make([]string, len(attachments))
		for i, a := range attachments {
			abs, err := filepath.Abs(a)
			if err != nil {
				return fmt.Errorf("resolving attachment %s: %w", a, err)
			}
			absAttachments[i] = abs
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ask", map[string]any{
			"question":        question,
			"meeting_context": meetingContext,
			"attachments":     absAttachments,
		})
		if err != nil {
			return err
		}

		var answer rag.Answer
		if err := decodeJSON(resp, &answer); err != nil {
			return err
		}

		printAnswer(answer)
		return nil
	},
}

func init() {
	askCmd.Flags().String("context", "", "file with meeting context to include")
	askCmd.Flags().StringSlice("attach", nil, "files to attach as additional context")
}

// --- transcript ---

var transcriptCmd = &cobra.Command{
	Use:   "transcript [file]",
	Short: "Detect and answer questions in a meeting transcript",
	Long: `Detect and answer questions in a meeting transcript.

Reads the transcript from the given file, or from stdin when no file is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading transcript: %w", err)
			}
		} else {
			data, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
		}
		if strings.TrimSpace(string(data)) == "" {
			return fmt.Errorf("transcript is empty")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/transcript", map[string]any{
			"transcript": string(data),
		})
		if err != nil {
			return err
		}

		var result struct {
			Answers []rag.QuestionAnswer `json:"answers"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Answers) == 0 {
			fmt.Println("No questions detected.")
			return nil
		}

		for _, qa := range result.Answers {
			fmt.Printf("\n%s %s\n", colorize(colorBold, "Q:"), qa.Question.Text)
			if qa.Answer == nil {
				printError("no answer generated")
				continue
			}
			printAnswer(*qa.Answer)
		}
		return nil
	},
}

func printAnswer(a rag.Answer) {
	fmt.Printf("%s\n", a.Answer)
	if len(a.Sources) > 0 {
		fmt.Printf("\n%s\n", colorize(colorBold, "Sources:"))
		for i, s := range a.Sources {
			fmt.Printf("  %d. %s (distance %.3f)\n", i+1, s.Filename, s.Distance)
		}
	}
	fmt.Printf("%s %.2f\n", colorize(colorCyan, "confidence:"), a.Confidence)
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/documents")
		if err != nil {
			return err
		}

		var result struct {
			Documents []index.Document `json:"documents"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Documents) == 0 {
			fmt.Println("No documents indexed.")
			return nil
		}

		for _, doc := range result.Documents {
			fmt.Printf("%s  %-30s  %3d chunks  %s\n",
				colorize(colorCyan, doc.DocID),
				doc.Filename,
				doc.ChunkCount,
				doc.Path,
			)
		}
		return nil
	},
}

var docsRemoveCmd = &cobra.Command{
	Use:   "rm <doc-id>",
	Short: "Remove a document from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/documents/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Removed document %s", result["deleted"])
		return nil
	},
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsRemoveCmd)
}

// --- answers ---

var answersCmd = &cobra.Command{
	Use:   "answers",
	Short: "List recent answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/answers?limit=%d", limit))
		if err != nil {
			return err
		}

		var result struct {
			Answers []struct {
				ID         string  `json:"id"`
				Question   string  `json:"question"`
				Answer     string  `json:"answer"`
				Confidence float64 `json:"confidence"`
				CreatedAt  string  `json:"created_at"`
			} `json:"answers"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Answers) == 0 {
			fmt.Println("No answers recorded.")
			return nil
		}

		for _, a := range result.Answers {
			question := a.Question
			if len(question) > 80 {
				question = question[:80] + "..."
			}
			fmt.Printf("%s  %s  [%.2f]  %s\n",
				colorize(colorCyan, a.ID[:8]),
				a.CreatedAt,
				a.Confidence,
				question,
			)
		}
		return nil
	},
}

func init() {
	answersCmd.Flags().Int("limit", 20, "maximum number of answers to list")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
