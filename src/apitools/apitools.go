package apitools

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.automatex.dev/stem/stemweb/src/blog"
	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/editor"
	"git.automatex.dev/stem/stemweb/src/lessons"
	"git.automatex.dev/stem/stemweb/src/preview"
	"git.automatex.dev/stem/stemweb/src/richtext"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/viewstate"
	"git.automatex.dev/stem/stemweb/src/website"
	"github.com/spf13/cobra"
)

const TokenEnvVar = "STEM_ACCESS_TOKEN"

func init() {
	apiCommand := &cobra.Command{
		Use:   "api",
		Short: "Talk to the STEM backend from the command line",
	}
	apiCommand.PersistentFlags().String("token", "", "Access token (defaults to $"+TokenEnvVar+")")
	apiCommand.PersistentFlags().String("api-url", "", "Backend base URL (defaults to the configured one)")
	website.WebsiteCommand.AddCommand(apiCommand)

	forumCommand := &cobra.Command{
		Use:   "forum",
		Short: "Show and edit forums",
	}
	apiCommand.AddCommand(forumCommand)

	forumShowCommand := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a forum",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(showForum(cmd.Context(), clientFromFlags(cmd), args[0], os.Stdout))
		},
	}
	forumCommand.AddCommand(forumShowCommand)

	forumEditCommand := &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit a forum's title, description or image",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			opts := EditOptions{ID: args[0]}
			if cmd.Flags().Changed("title") {
				title, _ := cmd.Flags().GetString("title")
				opts.Title = &title
			}
			if cmd.Flags().Changed("description") {
				description, _ := cmd.Flags().GetString("description")
				opts.Description = &description
			}
			opts.ImagePath, _ = cmd.Flags().GetString("image")
			opts.Yes, _ = cmd.Flags().GetBool("yes")

			exitOnError(editForum(cmd.Context(), clientFromFlags(cmd), opts, os.Stdin, os.Stdout))
		},
	}
	forumEditCommand.Flags().String("title", "", "New title")
	forumEditCommand.Flags().String("description", "", "New description")
	forumEditCommand.Flags().String("image", "", "Path to a new image")
	forumEditCommand.Flags().Bool("yes", false, "Save without asking")
	forumCommand.AddCommand(forumEditCommand)

	lessonCommand := &cobra.Command{
		Use:   "lesson",
		Short: "Show lessons",
	}
	apiCommand.AddCommand(lessonCommand)

	lessonShowCommand := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a lesson's sections and videos",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(showLesson(cmd.Context(), clientFromFlags(cmd), args[0], os.Stdout))
		},
	}
	lessonCommand.AddCommand(lessonShowCommand)

	blogCommand := &cobra.Command{
		Use:   "blog",
		Short: "List articles",
	}
	apiCommand.AddCommand(blogCommand)

	blogListCommand := &cobra.Command{
		Use:   "list",
		Short: "Print one page of articles",
		Run: func(cmd *cobra.Command, args []string) {
			pageSize, _ := cmd.Flags().GetInt("page-size")
			page, _ := cmd.Flags().GetInt("page")
			exitOnError(listArticles(cmd.Context(), clientFromFlags(cmd), pageSize, page, os.Stdout))
		},
	}
	blogListCommand.Flags().Int("page-size", 10, "Articles per page")
	blogListCommand.Flags().Int("page", 1, "Page number")
	blogCommand.AddCommand(blogListCommand)
}

func clientFromFlags(cmd *cobra.Command) *stemapi.Client {
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv(TokenEnvVar)
	}

	c := stemapi.NewFromConfig()
	if apiUrl, _ := cmd.Flags().GetString("api-url"); apiUrl != "" {
		c = stemapi.New(apiUrl,
			stemapi.WithTimeout(config.Config.Api.Timeout),
			stemapi.WithArticlePagination(config.Config.Api.PaginateArticles),
		)
	}
	return c.WithTokenSource(stemapi.StaticToken(token))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func showForum(ctx context.Context, api editor.API, id string, out io.Writer) error {
	forum, err := api.GetForum(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Forum %s\n", forum.ID)
	fmt.Fprintf(out, "Title:       %s\n", richtext.StripTags(forum.Title))
	fmt.Fprintf(out, "Description: %s\n", richtext.StripTags(forum.Description))
	if forum.Image != "" {
		fmt.Fprintf(out, "Image:       %s\n", forum.Image)
	}
	return nil
}

type EditOptions struct {
	ID          string
	Title       *string
	Description *string
	ImagePath   string
	Yes         bool
}

type printNotifier struct {
	out io.Writer
}

func (n printNotifier) Notify(level editor.Level, title, message string) {
	fmt.Fprintf(n.out, "%s: %s\n", title, message)
}

type doneNavigator struct {
	done bool
}

func (n *doneNavigator) Navigate(path string) {
	n.done = true
}

// stdinConfirmer asks on out and reads a y/n answer from in. Anything other
// than y or yes counts as no.
type stdinConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (c stdinConfirmer) Confirm(ctx context.Context, p editor.Prompt) (bool, error) {
	fmt.Fprintf(c.out, "%s %s\n[y] %s / [n] %s: ", p.Title, p.Text, p.ConfirmText, p.CancelText)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

var savePrompt = editor.Prompt{
	Title:       "Save changes?",
	Text:        "The forum will be replaced with your edits.",
	ConfirmText: "Save",
	CancelText:  "Don't save",
}

// editForum drives the same editor the website uses. Without Yes it asks
// before saving, and declining to save goes through the editor's cancel
// prompt; declining that asks about saving again.
func editForum(ctx context.Context, api editor.API, opts EditOptions, in io.Reader, out io.Writer) error {
	confirmer := stdinConfirmer{in: bufio.NewReader(in), out: out}
	nav := &doneNavigator{}
	previews := preview.NewMemoryStore(func(id string) string { return id }, config.Config.Previews.TTL, config.Config.Previews.MaxSize)

	ed := editor.New(editor.Deps{
		API:         api,
		Notifier:    printNotifier{out: out},
		Navigator:   nav,
		Confirmer:   confirmer,
		Previews:    previews,
		ListingPath: config.Config.Api.ListingPath,
	})
	defer ed.Close(ctx)

	if err := ed.Load(ctx, opts.ID); err != nil {
		return err
	}
	if opts.Title != nil {
		ed.ChangeTitle(*opts.Title)
	}
	if opts.Description != nil {
		ed.ChangeDescription(*opts.Description)
	}
	if opts.ImagePath != "" {
		f, err := os.Open(opts.ImagePath)
		if err != nil {
			return err
		}
		upload, err := preview.ReadUpload(filepath.Base(f.Name()), f, config.Config.Previews.MaxSize)
		f.Close()
		if err != nil {
			return err
		}
		if err := ed.SelectFile(ctx, &upload); err != nil {
			return err
		}
	}

	v := ed.View()
	fmt.Fprintf(out, "Title:       %s\n", v.Title)
	fmt.Fprintf(out, "Description: %s\n", v.Description)
	if v.PreviewID != "" {
		fmt.Fprintf(out, "Image:       %s (new)\n", opts.ImagePath)
		if !v.PreviewIsImage {
			fmt.Fprintln(out, "Warning: the new file does not look like an image.")
		}
	}

	for !opts.Yes {
		save, err := confirmer.Confirm(ctx, savePrompt)
		if err != nil {
			return err
		}
		if save {
			break
		}
		left, err := ed.Cancel(ctx)
		if err != nil {
			return err
		}
		if left {
			fmt.Fprintln(out, "Discarded changes.")
			return nil
		}
	}

	return ed.Submit(ctx)
}

func showLesson(ctx context.Context, api lessons.API, rawID string, out io.Writer) error {
	state, err := lessons.NewViewer(api).Show(ctx, rawID)
	if err != nil && state.Phase() != viewstate.Errored {
		return err
	}
	if msg, failed := state.Message(); failed {
		return errors.New(msg)
	}

	lesson, _ := state.Value()
	page := lessons.Project(lesson)
	fmt.Fprintf(out, "%s\n\n", page.Title)
	for _, section := range page.Sections {
		fmt.Fprintf(out, "  - %s\n", section)
	}
	if len(page.Videos) > 0 {
		fmt.Fprintln(out)
	}
	for _, video := range page.Videos {
		fmt.Fprintf(out, "  %s\n    %s\n", video.Title, video.EmbedURL)
	}
	return nil
}

// listArticles prints the page summaries, or the raw response when nothing
// in it looks like an article.
func listArticles(ctx context.Context, api blog.API, pageSize, page int, out io.Writer) error {
	raw, err := blog.Fetcher{API: api}.FetchPage(ctx, pageSize, page)
	if err != nil {
		return err
	}

	summaries, total, _ := blog.Summaries(raw)
	if len(summaries) == 0 {
		var pretty any
		if json.Unmarshal(raw, &pretty) == nil {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(pretty)
		}
		_, err := out.Write(raw)
		return err
	}

	for _, s := range summaries {
		fmt.Fprintf(out, "[%s] %s\n    %s\n", s.ID, s.Title, s.Excerpt)
	}
	fmt.Fprintf(out, "\n%d of %d articles\n", len(summaries), total)
	return nil
}
