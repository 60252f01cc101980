package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/reloop/internal/model"
	"github.com/go-resty/resty/v2"
)

const DefaultAPIURL = "https://api.postmarkapp.com"

var ErrNotConfigured = errors.New("email client not configured: missing server token")

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	http        *resty.Client
}

type Option func(*Client)

// WithAPIURL points the client at a different Postmark-compatible endpoint.
func WithAPIURL(url string) Option {
	return func(c *Client) {
		c.http.SetBaseURL(strings.TrimRight(url, "/"))
	}
}

// NewClient builds a Postmark client. baseURL is the public site address
// used for links in message bodies.
func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     strings.TrimRight(baseURL, "/"),
		http: resty.New().
			SetBaseURL(DefaultAPIURL).
			SetHeader("Accept", "application/json").
			SetTimeout(10 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

type postmarkError struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// SendPickupConfirmation tells the requester their doorstep pickup is booked.
func (c *Client) SendPickupConfirmation(ctx context.Context, p *model.DoorstepPickup) error {
	date := p.ScheduledDate.Format("Monday, January 2")
	link := fmt.Sprintf("%s/activity?tab=pickups", c.baseURL)

	text := fmt.Sprintf(
		"Hi %s,\n\nYour doorstep pickup is scheduled for %s (%s) at %s, %s.\nItems: %s\n\nManage or cancel it here: %s\n",
		p.Name, date, p.TimeSlot, p.Address, p.City, strings.Join(p.Items, ", "), link,
	)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your doorstep pickup is scheduled for <strong>%s (%s)</strong> at %s, %s.</p><p>Items: %s</p><p><a href="%s">Manage or cancel your pickup</a></p>`,
		p.Name, date, p.TimeSlot, p.Address, p.City, strings.Join(p.Items, ", "), link,
	)

	return c.send(ctx, postmarkEmail{
		To:       p.Email,
		Subject:  "Your Reloop pickup is scheduled",
		TextBody: text,
		HtmlBody: html,
		Tag:      "pickup-confirmation",
	})
}

// SendRequestReceived acknowledges a business, education or mail-in request.
func (c *Client) SendRequestReceived(ctx context.Context, r *model.RecycleRequest) error {
	var subject string
	switch r.Kind {
	case model.RequestBusiness:
		subject = "We received your business recycling request"
	case model.RequestEducation:
		subject = "We received your school recycling request"
	case model.RequestMailIn:
		subject = "Your mail-in recycling kit request"
	default:
		subject = "We received your request"
	}

	text := fmt.Sprintf("Hi %s,\n\nThanks for reaching out. Our team will contact you within two business days.\n", r.Name)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Thanks for reaching out. Our team will contact you within two business days.</p>", r.Name)

	return c.send(ctx, postmarkEmail{
		To:       r.Email,
		Subject:  subject,
		TextBody: text,
		HtmlBody: html,
		Tag:      "request-" + string(r.Kind),
	})
}

func (c *Client) send(ctx context.Context, msg postmarkEmail) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if msg.To == "" {
		return fmt.Errorf("send email: missing recipient")
	}
	msg.From = c.fromEmail

	var perr postmarkError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Postmark-Server-Token", c.serverToken).
		SetBody(&msg).
		SetError(&perr).
		Post("/email")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		if perr.Message != "" {
			return fmt.Errorf("postmark API error: status %d: %s", resp.StatusCode(), perr.Message)
		}
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode())
	}
	return nil
}
