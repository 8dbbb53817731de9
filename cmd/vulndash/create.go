package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/vulndash/vulndash/pkg/api"
	"github.com/vulndash/vulndash/pkg/tui"
)

var createReq api.CreateProjectRequest

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project from a scan export",
	Long: `Create a project. Missing fields are prompted for when the terminal is
interactive. The optional CSV file is the scanner export whose rows become
the project's findings.`,
	Example: `  vulndash create --name juice-shop \
    --url https://github.com/juice-shop/juice-shop \
    --deployment-url https://juice.example.com --csv findings.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := createReq
		if tui.IsInteractive() {
			if err := promptMissing(&req); err != nil {
				return err
			}
		}
		req.Name = strings.TrimSpace(req.Name)
		if err := tui.Validate(req); err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		id, err := client.CreateProject(ctx, req)
		if err != nil {
			return err
		}

		fmt.Printf("✅ Created project %s (%s)\n", req.Name, id)
		fmt.Printf("   Open it with: vulndash open %s\n", id)
		return nil
	},
}

func absoluteURL(ans interface{}) error {
	s, _ := ans.(string)
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("enter an absolute URL such as https://example.com")
	}
	return nil
}

func existingFile(ans interface{}) error {
	s, _ := ans.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	info, err := os.Stat(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", s)
	}
	return nil
}

// promptMissing asks for every field not given as a flag
func promptMissing(req *api.CreateProjectRequest) error {
	var qs []*survey.Question
	if req.Name == "" {
		qs = append(qs, &survey.Question{
			Name:     "name",
			Prompt:   &survey.Input{Message: "Project name:"},
			Validate: survey.Required,
		})
	}
	if req.SourceURL == "" {
		qs = append(qs, &survey.Question{
			Name:     "url",
			Prompt:   &survey.Input{Message: "Source repository URL:"},
			Validate: survey.ComposeValidators(survey.Required, absoluteURL),
		})
	}
	if req.DeploymentURL == "" {
		qs = append(qs, &survey.Question{
			Name:     "deployment",
			Prompt:   &survey.Input{Message: "Deployment URL:"},
			Validate: survey.ComposeValidators(survey.Required, absoluteURL),
		})
	}
	if req.CSVPath == "" {
		qs = append(qs, &survey.Question{
			Name:     "csv",
			Prompt:   &survey.Input{Message: "Scan CSV file (optional):"},
			Validate: existingFile,
		})
	}
	if len(qs) == 0 {
		return nil
	}

	answers := struct {
		Name       string `survey:"name"`
		URL        string `survey:"url"`
		Deployment string `survey:"deployment"`
		CSV        string `survey:"csv"`
	}{req.Name, req.SourceURL, req.DeploymentURL, req.CSVPath}

	if err := survey.Ask(qs, &answers); err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	req.Name = answers.Name
	req.SourceURL = strings.TrimSpace(answers.URL)
	req.DeploymentURL = strings.TrimSpace(answers.Deployment)
	req.CSVPath = strings.TrimSpace(answers.CSV)
	return nil
}

func init() {
	createCmd.Flags().StringVarP(&createReq.Name, "name", "n", "", "Project name")
	createCmd.Flags().StringVar(&createReq.SourceURL, "url", "", "Source repository URL")
	createCmd.Flags().StringVar(&createReq.DeploymentURL, "deployment-url", "", "Deployment URL")
	createCmd.Flags().StringVar(&createReq.CSVPath, "csv", "", "Scan CSV file")
	rootCmd.AddCommand(createCmd)
}
