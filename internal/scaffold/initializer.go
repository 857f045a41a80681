package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/quill/internal/config"
	"github.com/dyluth/quill/pkg/content"
)

//go:embed templates/*
var templatesFS embed.FS

// SampleTopic is the topic folder created under source/.
const SampleTopic = "csv_export"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates the quill project structure under root.
// If force is true, existing quill.yml, source/ and examples/ are removed first.
func Initialize(root string, force bool) ([]FileInfo, error) {
	if force {
		if err := handleForce(root); err != nil {
			return nil, err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return nil, err
	}

	if err := writeFiles(root, files); err != nil {
		return nil, err
	}

	if err := validateCreatedFiles(root); err != nil {
		return nil, err
	}

	return files, nil
}

// handleForce removes existing project files if --force was specified.
func handleForce(root string) error {
	for _, name := range managedPaths {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fmt.Printf("⚠️  Removing existing %s...\n", name)
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// getTemplateFiles maps every embedded template to its project path.
func getTemplateFiles() ([]FileInfo, error) {
	layout := []struct {
		template string
		path     string
	}{
		{"quill.yml.tmpl", config.DefaultConfigFile},
		{"env.tmpl", ".env.example"},
		{"meeting_transcript.txt.tmpl", filepath.Join(config.DefaultSourceDir, SampleTopic, "meeting_transcript.txt")},
		{"customer_feedback.txt.tmpl", filepath.Join(config.DefaultSourceDir, SampleTopic, "customer_feedback.txt")},
		{"linkedin_example.json.tmpl", exampleFile(content.ChannelLinkedIn)},
		{"newsletter_example.json.tmpl", exampleFile(content.ChannelNewsletter)},
		{"blog_example.json.tmpl", exampleFile(content.ChannelBlog)},
	}

	files := make([]FileInfo, 0, len(layout))
	for _, l := range layout {
		data, err := templatesFS.ReadFile("templates/" + l.template)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s template: %w", l.template, err)
		}
		files = append(files, FileInfo{Path: l.path, Content: data, Permissions: 0644})
	}
	return files, nil
}

func exampleFile(ch content.Channel) string {
	return filepath.Join(config.DefaultExamplesDir, string(ch), "example_1.json")
}

// writeFiles writes all template files, creating parent directories.
func writeFiles(root string, files []FileInfo) error {
	for _, file := range files {
		path := filepath.Join(root, file.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(file.Path), err)
		}
		if err := os.WriteFile(path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads the written quill.yml through the real config
// loader so a broken template fails init instead of the first run.
func validateCreatedFiles(root string) error {
	if _, err := config.Load(filepath.Join(root, config.DefaultConfigFile)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultConfigFile, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess(files []FileInfo) {
	fmt.Println("\n✅ Successfully initialized quill project!")
	fmt.Println("\nCreated:")
	for _, f := range files {
		fmt.Printf("  ✓ %s\n", filepath.ToSlash(f.Path))
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Copy .env.example to .env and fill in your API credentials")
	fmt.Println("  2. Add a folder per topic under source/ with transcripts, notes and feedback")
	fmt.Println("  3. Run 'quill forage --dry-run' to try the workflow offline")
	fmt.Println("  4. Run 'quill forage --all-channels' to generate content")
}
