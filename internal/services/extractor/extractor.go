// -----------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026 10:07:31 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/models"
)

// ErrNoConversations aborts the whole run; per-conversation failures
// never do.
var ErrNoConversations = errors.New("no conversations found")

// stepFunc handles one sidebar row; swapped out in tests
type stepFunc func(ctx context.Context, interceptor *Interceptor, index int) error

// Extractor drives one browser page through the conversation list and
// posts one payload per conversation. Strictly sequential: the page's
// "open conversation" state is global, so there is no safe parallelism.
type Extractor struct {
	config  *common.ScraperConfig
	job     *models.ScrapeJob
	client  *APIClient
	logger  arbor.ILogger
	limiter *rate.Limiter
	step    stepFunc
}

// New creates an extractor for one run
func New(config *common.ScraperConfig, job *models.ScrapeJob, logger arbor.ILogger) *Extractor {
	e := &Extractor{
		config:  config,
		job:     job,
		client:  NewAPIClient(job.APIEndpoint, job.Tenant),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(config.Timeouts.BetweenConvs), 1),
	}
	e.step = e.processConversation
	return e
}

// Run executes the full extraction. The returned result is valid even
// when err is non-nil, reflecting whatever completed before the failure.
func (e *Extractor) Run(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(e.config.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, allocatorOpts...)
	defer allocatorCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	interceptor := NewInterceptor(browserCtx)

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		return result, fmt.Errorf("failed to enable network capture: %w", err)
	}

	if err := e.login(browserCtx); err != nil {
		return result, err
	}

	count, err := e.waitForConversations(browserCtx)
	if err != nil {
		return result, err
	}
	e.logger.Info().Int("visible", count).Msg("Conversation list loaded")

	count = e.paginate(browserCtx, count)
	if count > e.config.MaxConversations {
		count = e.config.MaxConversations
	}
	result.Total = count
	e.logger.Info().Int("total", count).Msg("Starting extraction")

	if err := e.processAll(browserCtx, interceptor, result); err != nil {
		return result, err
	}
	return result, nil
}

// processAll walks the sidebar rows one by one. A failed row is counted
// and the walk continues; only context cancellation stops it early.
func (e *Extractor) processAll(ctx context.Context, interceptor *Interceptor, result *models.RunResult) error {
	for i := 0; i < result.Total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.step(ctx, interceptor, i); err != nil {
			result.Failed++
			e.logger.Warn().Err(err).Int("index", i+1).Int("total", result.Total).Msg("Conversation failed")
		} else {
			result.Succeeded++
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// login navigates to the dashboard and authenticates if the site
// bounced us to the login form
func (e *Extractor) login(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, e.config.Timeouts.Navigation)
	defer cancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(e.config.TargetURL),
		chromedp.Sleep(e.config.Timeouts.Settle),
	); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	var hasLoginForm bool
	if err := chromedp.Run(navCtx,
		chromedp.Evaluate(`document.querySelector('input[type=password]') !== null`, &hasLoginForm),
	); err != nil {
		return err
	}
	if !hasLoginForm {
		return nil
	}

	e.logger.Info().Str("tenant", e.job.Tenant).Msg("Logging in")
	if err := chromedp.Run(navCtx,
		chromedp.SendKeys(`input[type=email]`, e.job.Email, chromedp.ByQuery),
		chromedp.SendKeys(`input[type=password]`, e.job.Password, chromedp.ByQuery),
		chromedp.Click(`button[type=submit]`, chromedp.ByQuery),
		chromedp.Sleep(e.config.Timeouts.Settle),
		chromedp.Navigate(e.config.TargetURL),
		chromedp.Sleep(e.config.Timeouts.Settle),
	); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// waitForConversations polls for sidebar rows with bounded retry
func (e *Extractor) waitForConversations(ctx context.Context) (int, error) {
	deadline := time.Now().Add(e.config.Timeouts.ListTimeout)
	for {
		count, err := e.rowCount(ctx)
		if err == nil && count > 0 {
			return count, nil
		}
		if time.Now().After(deadline) {
			return 0, ErrNoConversations
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(e.config.Timeouts.ListPoll):
		}
	}
}

// paginate triggers "load more" until the page or conversation limit is
// reached, or the affordance disappears. The conversation limit check
// runs before probing for the button.
func (e *Extractor) paginate(ctx context.Context, count int) int {
	for page := 1; page < e.config.MaxPages; page++ {
		if count >= e.config.MaxConversations {
			break
		}

		clicked := false
		script := fmt.Sprintf(
			`(() => {
				const btns = document.querySelectorAll(%q);
				for (const b of btns) {
					if (b.textContent.includes(%q)) { b.click(); return true; }
				}
				return false;
			})()`,
			e.config.Selectors.LoadMore, e.config.Selectors.LoadMoreText,
		)
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &clicked)); err != nil || !clicked {
			break
		}

		if err := chromedp.Run(ctx, chromedp.Sleep(e.config.Timeouts.LoadMore)); err != nil {
			break
		}
		newCount, err := e.rowCount(ctx)
		if err != nil || newCount <= count {
			break
		}
		count = newCount
		e.logger.Info().Int("page", page+1).Int("visible", count).Msg("Loaded more conversations")
	}
	return count
}

// processConversation handles one sidebar row end to end. A panic from
// any step is converted into a per-conversation failure.
func (e *Extractor) processConversation(ctx context.Context, interceptor *Interceptor, index int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	rowHTML, err := e.rowHTML(ctx, index)
	if err != nil {
		return fmt.Errorf("row read failed: %w", err)
	}
	ref, err := ParseConversationRow(rowHTML, &e.config.Selectors)
	if err != nil {
		return fmt.Errorf("row parse failed: %w", err)
	}
	ref.Index = index

	// The conversation ID is only learned from the intercepted XHR URL,
	// so the interceptor is armed wide open
	interceptor.Reset("")

	if err := e.clickRow(ctx, index); err != nil {
		return fmt.Errorf("activation failed: %w", err)
	}

	convID, body, ok := interceptor.Await(ctx, e.config.Timeouts.ResponseWait, e.config.Timeouts.ResponsePoll)
	if !ok {
		return fmt.Errorf("timeout waiting for messages of %q", ref.Title)
	}

	messages, err := parseMessagesBody(body)
	if err != nil {
		return fmt.Errorf("message decode failed: %w", err)
	}

	if err := chromedp.Run(ctx, chromedp.Sleep(e.config.Timeouts.Images)); err != nil {
		return err
	}
	images := e.harvestChatImages(ctx)

	listingID, listingDesc := e.openListingPanel(ctx)

	payload := &models.ConversationPayload{
		ConversationID: models.FlexString(convID),
		UserID:         models.FlexString(ref.UserID),
		Info: models.PayloadInfo{
			Title: ref.Title,
			User:  ref.UserName,
			Site:  e.config.Site,
		},
		Messages:    messages,
		Images:      images,
		AnnonceID:   models.FlexString(listingID),
		AnnonceDesc: listingDesc,
	}
	if listingID != "" {
		payload.AnnonceURL = e.config.ListingURLBase + listingID
	}

	saved, err := e.client.SaveConversation(ctx, payload)
	if err != nil {
		return err
	}
	e.logger.Info().
		Str("conversation", saved.ConversationID).
		Str("title", ref.Title).
		Int("messages", saved.MessagesCount).
		Int("new", saved.NewMessages).
		Int("images", saved.ImagesCount).
		Msg("Conversation saved")
	return nil
}

// harvestChatImages reads the open chat pane. Harvest failure is not a
// conversation failure; the intercepted medias still cover most images.
func (e *Extractor) harvestChatImages(ctx context.Context) []models.PayloadImage {
	var paneHTML string
	script := fmt.Sprintf(
		`(() => { const p = document.querySelector(%q); return p ? p.outerHTML : ''; })()`,
		e.config.Selectors.ChatPane,
	)
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &paneHTML)); err != nil || paneHTML == "" {
		return nil
	}
	images, err := HarvestImages(paneHTML, &e.config.Selectors)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Image harvest failed")
		return nil
	}
	return images
}

// openListingPanel opens the listing dialog if its button exists, pulls
// the badge ID and description, and closes it. A missing button or
// missing panel content yields empty values, never an error.
func (e *Extractor) openListingPanel(ctx context.Context) (listingID, description string) {
	clicked := false
	openScript := fmt.Sprintf(
		`(() => { const b = document.querySelector(%q); if (b) { b.click(); return true; } return false; })()`,
		e.config.Selectors.ListingBtn,
	)
	if err := chromedp.Run(ctx, chromedp.Evaluate(openScript, &clicked)); err != nil || !clicked {
		return "", ""
	}
	if err := chromedp.Run(ctx, chromedp.Sleep(e.config.Timeouts.ListingModal)); err != nil {
		return "", ""
	}

	var badgeText, descHTML string
	readScript := fmt.Sprintf(
		`(() => {
			const badge = document.querySelector(%q);
			const desc = document.querySelector(%q);
			return JSON.stringify({
				badge: badge ? badge.textContent : '',
				desc: desc ? desc.innerHTML : ''
			});
		})()`,
		e.config.Selectors.ListingBadge, e.config.Selectors.ListingDesc,
	)
	var raw string
	if err := chromedp.Run(ctx, chromedp.Evaluate(readScript, &raw)); err == nil {
		var panel struct {
			Badge string `json:"badge"`
			Desc  string `json:"desc"`
		}
		if json.Unmarshal([]byte(raw), &panel) == nil {
			badgeText = panel.Badge
			descHTML = panel.Desc
		}
	}

	closeScript := fmt.Sprintf(
		`(() => { const c = document.querySelector(%q); if (c) c.click(); })()`,
		e.config.Selectors.ListingClose,
	)
	_ = chromedp.Run(ctx, chromedp.Evaluate(closeScript, nil))
	_ = chromedp.Run(ctx, chromedp.Sleep(e.config.Timeouts.ListingModal/3))

	listingID = ExtractListingID(badgeText)
	if descHTML != "" {
		description = DescriptionMarkdown(descHTML)
	}
	return listingID, description
}

func (e *Extractor) rowCount(ctx context.Context) (int, error) {
	var count int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, e.config.Selectors.ConvList)
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Extractor) rowHTML(ctx context.Context, index int) (string, error) {
	var html string
	script := fmt.Sprintf(
		`(() => { const r = document.querySelectorAll(%q)[%d]; return r ? r.outerHTML : ''; })()`,
		e.config.Selectors.ConvList, index,
	)
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &html)); err != nil {
		return "", err
	}
	if html == "" {
		return "", fmt.Errorf("row %d not found", index)
	}
	return html, nil
}

func (e *Extractor) clickRow(ctx context.Context, index int) error {
	script := fmt.Sprintf(
		`(() => { const r = document.querySelectorAll(%q)[%d]; if (r) { r.click(); return true; } return false; })()`,
		e.config.Selectors.ConvList, index,
	)
	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("row %d vanished before click", index)
	}
	return nil
}

// parseMessagesBody decodes the intercepted message-list response. The
// site has served both a bare array and an object wrapper.
func parseMessagesBody(body []byte) ([]models.PayloadMessage, error) {
	var direct []models.PayloadMessage
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Messages []models.PayloadMessage `json:"messages"`
		Data     []models.PayloadMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Messages != nil {
		return wrapped.Messages, nil
	}
	return wrapped.Data, nil
}
