package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bsky-graph/ingest/internal/bluesky"
)

var publishFlags struct {
	handle      string
	password    string
	pds         string
	serviceDID  string
	feedRKey    string
	displayName string
	description string
	avatarPath  string
	unpublish   bool
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish or unpublish a feed generator record on the authenticated account's repo",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPublish()
	},
}

func init() {
	flags := publishCmd.Flags()
	flags.StringVar(&publishFlags.handle, "handle", envOrDefault("BLUESKY_HANDLE", ""), "BlueSky handle (e.g. user.bsky.social)")
	flags.StringVar(&publishFlags.password, "password", envOrDefault("BLUESKY_APP_PASSWORD", ""), "BlueSky app password")
	flags.StringVar(&publishFlags.pds, "pds", envOrDefault("BLUESKY_PDS", "https://bsky.social"), "PDS service URL")
	flags.StringVar(&publishFlags.serviceDID, "service-did", envOrDefault("FEEDGEN_SERVICE_DID", ""), "Feed generator service DID (e.g. did:web:feed.example.com)")
	flags.StringVar(&publishFlags.feedRKey, "rkey", "", "Record key / short name for the feed (e.g. my-cool-feed)")
	flags.StringVar(&publishFlags.displayName, "name", "", "Feed display name (max 24 graphemes)")
	flags.StringVar(&publishFlags.description, "description", "", "Feed description (max 300 graphemes)")
	flags.StringVar(&publishFlags.avatarPath, "avatar-path", "", "Path to avatar image (PNG or JPEG)")
	flags.BoolVar(&publishFlags.unpublish, "unpublish", false, "Delete the feed generator record instead of publishing")

	rootCmd.AddCommand(publishCmd)
}

func runPublish() error {
	f := publishFlags

	if f.handle == "" || f.password == "" {
		return fmt.Errorf("--handle and --password are required (or set BLUESKY_HANDLE and BLUESKY_APP_PASSWORD)")
	}
	if f.feedRKey == "" {
		return fmt.Errorf("--rkey is required")
	}

	ctx := context.Background()
	client := bluesky.NewClient(f.pds)

	fmt.Printf("Logging in as %s...\n", f.handle)
	if err := client.Login(ctx, f.handle, f.password); err != nil {
		return err
	}
	fmt.Printf("Authenticated as %s\n", client.DID())

	var avatarRef *bluesky.BlobRef
	if f.avatarPath != "" {
		mimeType, err := detectMimeType(f.avatarPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v, skipping avatar upload\n", err)
		} else {
			imgData, err := os.ReadFile(f.avatarPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to read avatar file: %v, skipping avatar upload\n", err)
			} else {
				fmt.Printf("Uploading avatar from %s...\n", f.avatarPath)
				avatarRef, err = client.UploadBlob(ctx, imgData, mimeType)
				if err != nil {
					fmt.Fprintf(os.Stderr, "warning: failed to upload avatar: %v, continuing without avatar\n", err)
					avatarRef = nil
				} else {
					fmt.Printf("Avatar uploaded successfully (CID: %s, size: %d bytes, type: %s)\n",
						avatarRef.Ref.Link, avatarRef.Size, avatarRef.MimeType)
				}
			}
		}
	}

	if f.unpublish {
		fmt.Printf("Unpublishing feed %q...\n", f.feedRKey)
		if err := client.UnpublishFeedGenerator(ctx, f.feedRKey); err != nil {
			return err
		}
		fmt.Printf("Feed unpublished: at://%s/app.bsky.feed.generator/%s\n", client.DID(), f.feedRKey)
		return nil
	}

	if f.serviceDID == "" {
		return fmt.Errorf("--service-did is required for publishing (or set FEEDGEN_SERVICE_DID)")
	}
	if f.displayName == "" {
		return fmt.Errorf("--name is required for publishing")
	}

	record := bluesky.FeedGeneratorRecord{
		DID:         f.serviceDID,
		DisplayName: f.displayName,
		Description: f.description,
		Avatar:      avatarRef,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	fmt.Printf("Publishing feed %q...\n", f.feedRKey)
	if err := client.PublishFeedGenerator(ctx, f.feedRKey, record); err != nil {
		return err
	}

	feedURI := fmt.Sprintf("at://%s/app.bsky.feed.generator/%s", client.DID(), f.feedRKey)
	fmt.Printf("Feed published: %s\n", feedURI)

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func detectMimeType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	default:
		return "", fmt.Errorf("unsupported file extension %q: expected .png, .jpg, or .jpeg", ext)
	}
}
