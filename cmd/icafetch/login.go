package main

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gridcap/icafetch/internal/browser"
	"github.com/spf13/cobra"
)

var loginHeadless bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the ICA map and save cookies",
	Long: `Logs in to the utility's ICA map and saves the session cookies to the config
file. With credentials in config.yaml the login runs headless; otherwise a
browser window opens for you to log in manually.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginHeadless, "headless", true, "Run the browser headless (requires username/password in config)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	loginURL := cfg.GetLoginURL()

	if loginHeadless && cfg.ICAMap.Username != "" && cfg.ICAMap.Password != "" {
		fmt.Println("Logging in to the ICA map...")
		cookies, err := browser.Login(context.Background(), loginURL, cfg.ICAMap.Username, cfg.ICAMap.Password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		cfg.ICAMap.Cookies = cookies
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("✓ Successfully saved %d cookies\n", len(cookies))
		return nil
	}

	// Manual path: visible browser, user logs in, then confirms here
	fmt.Println("Opening browser for ICA map login...")
	fmt.Println("Please log in manually in the browser window.")
	fmt.Println("Then press Enter here to save...")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Set a longer timeout for user to login
	ctx, cancel = context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(loginURL),
	); err != nil {
		return fmt.Errorf("navigating to login page: %w", err)
	}

	// Wait for user to press Enter
	fmt.Scanln()

	fmt.Println("Extracting cookies...")
	cookies, err := browser.ExtractCookies(ctx)
	if err != nil {
		return fmt.Errorf("extracting cookies: %w", err)
	}

	if len(cookies) == 0 {
		return fmt.Errorf("no cookies found - make sure you're logged in")
	}

	cfg.ICAMap.Cookies = cookies
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("✓ Successfully saved %d cookies\n", len(cookies))
	return nil
}
