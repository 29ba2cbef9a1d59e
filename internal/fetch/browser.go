package fetch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// browserSettle is how long a rendered careers page is given to populate its job list.
const browserSettle = 3 * time.Second

// RenderWithBrowser loads a page in headless Chrome and returns the rendered HTML.
// Used for careers pages whose listings are injected by JavaScript.
// Requires Chrome/Chromium on the host.
func RenderWithBrowser(ctx context.Context, pageURL string, timeout time.Duration, verbose bool) (string, error) {
	if err := validateURL(pageURL); err != nil {
		return "", err
	}
	if verbose {
		log.Printf("[BROWSER] Rendering careers page: %s", pageURL)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var rendered string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(browserSettle),
		chromedp.OuterHTML("html", &rendered),
	)
	if err != nil {
		return "", &Error{URL: pageURL, Message: "browser rendering failed", Cause: fmt.Errorf("chromedp: %w", err)}
	}

	if verbose {
		log.Printf("[BROWSER] Rendered %d bytes from %s", len(rendered), pageURL)
	}
	return rendered, nil
}
