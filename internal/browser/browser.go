// Package browser drives a headless Chrome session against the ICA map login
// page and shuttles cookies between the browser and the config file.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/gridcap/icafetch/internal/config"
)

// ExtractCookies extracts all cookies from the current browser context
func ExtractCookies(ctx context.Context) ([]config.Cookie, error) {
	var cookies []*network.Cookie

	if err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("getting cookies: %w", err)
	}

	result := make([]config.Cookie, 0, len(cookies))
	for _, c := range cookies {
		result = append(result, config.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}

	return result, nil
}

// SetCookies sets cookies in the browser context
func SetCookies(ctx context.Context, cookies []config.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	for _, c := range cookies {
		expr := network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path).
			WithHTTPOnly(c.HTTPOnly).
			WithSecure(c.Secure)

		if err := chromedp.Run(ctx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				return expr.Do(ctx)
			}),
		); err != nil {
			return fmt.Errorf("setting cookie %s: %w", c.Name, err)
		}
	}

	return nil
}

// Login signs in to the ICA map with a headless browser and returns the
// session cookies. The map sits behind a standard username/password form;
// access requires a (free) utility account.
func Login(ctx context.Context, loginURL, username, password string) ([]config.Cookie, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("no username/password configured")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, 60*time.Second)
	defer cancel()

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(loginURL),
		chromedp.Sleep(2*time.Second), // Wait for page to fully load
		chromedp.WaitVisible(`input#username`, chromedp.ByQuery),
		chromedp.SendKeys(`input#username`, username, chromedp.ByQuery),
		chromedp.SendKeys(`input[placeholder="Password"]`, password, chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Click(`#submit`, chromedp.ByQuery),
		chromedp.Sleep(5*time.Second), // Wait for redirect to the map
	); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	cookies, err := ExtractCookies(browserCtx)
	if err != nil {
		return nil, fmt.Errorf("extracting cookies: %w", err)
	}

	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies after login (bad credentials?)")
	}

	return cookies, nil
}
