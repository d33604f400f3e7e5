package main

import (
	"github.com/spf13/cobra"

	"github.com/maauso/charactercast-api/internal/client"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new character video job",
	Example: `  charactercast submit --type animal --topic "space travel" \
    --attr species=Dog --attr trait=Playful`,
	RunE: runSubmit,
}

var processCmd = &cobra.Command{
	Use:   "process <job-id>",
	Short: "Run the script, image and audio stages and launch the video stage",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current state of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var runStageCmd = &cobra.Command{
	Use:   "run-stage <job-id> <script|image|audio|video>",
	Short: "Run a single stage synchronously",
	Args:  cobra.ExactArgs(2),
	RunE:  runRunStage,
}

var (
	submitType    string
	submitTopic   string
	submitAttrs   map[string]string
	submitProcess bool
)

func init() {
	submitCmd.Flags().StringVar(&submitType, "type", "", "Character type: baby, animal or historical-figure (required)")
	submitCmd.Flags().StringVar(&submitTopic, "topic", "", "What the character talks about (required)")
	submitCmd.Flags().StringToStringVar(&submitAttrs, "attr", nil, "Character attribute as key=value (repeatable)")
	submitCmd.Flags().BoolVar(&submitProcess, "process", false, "Start processing right after submitting")
	_ = submitCmd.MarkFlagRequired("type")
	_ = submitCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(submitCmd, processCmd, statusCmd, runStageCmd)
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	resp, err := c.Submit(cmd.Context(), client.SubmitRequest{
		CharacterType: submitType,
		Topic:         submitTopic,
		Attributes:    submitAttrs,
	})
	if err != nil {
		return err
	}

	if !submitProcess {
		return printJSON(cmd.OutOrStdout(), resp)
	}

	processed, err := c.Process(cmd.Context(), resp.JobID)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), processed)
}

func runProcess(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	resp, err := c.Process(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	v, err := c.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}

func runRunStage(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	v, err := c.RunStage(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}
