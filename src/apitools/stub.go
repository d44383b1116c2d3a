package apitools

import (
	"net/http"

	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/stubapi"
	"git.automatex.dev/stem/stemweb/src/website"
	"github.com/spf13/cobra"
)

func init() {
	stubCommand := &cobra.Command{
		Use:   "stubapi",
		Short: "Run an in-memory fake of the STEM backend",
		Long:  "Run an in-memory fake of the STEM backend. Point STEM_API_BASE_URL at http://<addr>/api/ to use it.",
		Run: func(cmd *cobra.Command, args []string) {
			addr, _ := cmd.Flags().GetString("addr")
			numForums, _ := cmd.Flags().GetInt("forums")
			numLessons, _ := cmd.Flags().GetInt("lessons")
			numArticles, _ := cmd.Flags().GetInt("articles")

			s := stubapi.New()
			s.Token, _ = cmd.Flags().GetString("require-token")
			s.Seed(numForums, numLessons, numArticles)

			logging.Info().
				Str("addr", addr).
				Int("forums", numForums).
				Int("lessons", numLessons).
				Int("articles", numArticles).
				Msg("Serving the stub api")
			err := http.ListenAndServe(addr, s.Handler())
			if err != nil {
				logging.Fatal().Err(err).Msg("stub api stopped")
			}
		},
	}
	stubCommand.Flags().String("addr", "localhost:9010", "Address to listen on")
	stubCommand.Flags().Int("forums", 5, "Number of forums to seed")
	stubCommand.Flags().Int("lessons", 3, "Number of lessons to seed")
	stubCommand.Flags().Int("articles", 25, "Number of articles to seed")
	stubCommand.Flags().String("require-token", "", "Reject requests that don't carry this bearer token")

	website.WebsiteCommand.AddCommand(stubCommand)
}
