package utils

import (
	"encoding/json"
	"fmt"
	"log"

	"lms/config"
	"lms/services"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// SandboxGateway talks to the sandbox checkout provider over its REST API.
// It implements services.SessionOpener.
type SandboxGateway struct {
	client *resty.Client
}

// NewSandboxGateway builds the gateway client from AppConfig.
func NewSandboxGateway() *SandboxGateway {
	client := resty.New().
		SetBaseURL(config.AppConfig.PaymentApiURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", config.AppConfig.PaymentApiKey).
		SetHeader("X-Api-Secret", config.AppConfig.PaymentSecretKey)
	return &SandboxGateway{client: client}
}

// OpenSession creates a hosted checkout session carrying the enrollment
// correlation metadata the webhook needs to find its way back.
func (g *SandboxGateway) OpenSession(amount float64, currency string, metadata map[string]string) (*services.CheckoutSession, error) {
	payload := map[string]interface{}{
		"amount":        amount,
		"currency":      currency,
		"reference_id":  uuid.NewString(),
		"return_url":    config.AppConfig.PaymentReturnURL,
		"metadata":      metadata,
		"session_kinds": []string{"checkout.session.completed", "checkout.session.expired"},
	}

	resp, err := g.client.R().SetBody(payload).Post("checkout/sessions")
	if err != nil {
		log.Printf("[PAYMENT-GATEWAY] Failed to open checkout session: %v", err)
		return nil, err
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		log.Printf("[PAYMENT-GATEWAY] Non-2xx opening session: %d, %s", resp.StatusCode(), resp.String())
		return nil, fmt.Errorf("payment gateway error: %d", resp.StatusCode())
	}

	var sessionResp struct {
		SessionID   string `json:"session_id"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.Unmarshal(resp.Body(), &sessionResp); err != nil {
		log.Printf("[PAYMENT-GATEWAY] Failed to parse session response: %v", err)
		return nil, err
	}
	if sessionResp.SessionID == "" {
		return nil, fmt.Errorf("payment gateway returned empty session id")
	}
	if sessionResp.RedirectURL == "" {
		sessionResp.RedirectURL = g.CheckoutURL(sessionResp.SessionID)
	}

	return &services.CheckoutSession{
		SessionID:   sessionResp.SessionID,
		RedirectURL: sessionResp.RedirectURL,
	}, nil
}

// CheckoutURL rebuilds the hosted checkout page URL for an existing session.
func (g *SandboxGateway) CheckoutURL(sessionID string) string {
	return config.AppConfig.PaymentApiURL + "checkout/sessions/" + sessionID + "/pay"
}
