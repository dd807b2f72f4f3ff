package utils

import (
	"encoding/json"
	"fmt"
	"log"

	"lms/config"

	"github.com/go-resty/resty/v2"
)

// CertificateStorage uploads rendered certificate artifacts to the external
// certificate store. It implements services.CertificateStore.
type CertificateStorage struct {
	client *resty.Client
}

// NewCertificateStorage builds the storage client from AppConfig.
func NewCertificateStorage() *CertificateStorage {
	client := resty.New().
		SetBaseURL(config.AppConfig.CertStoreURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+config.AppConfig.CertStoreKey)
	return &CertificateStorage{client: client}
}

// Store renders and uploads the certificate, returning its public URL. The
// store owns the actual rendering; we only hand it the reference data.
func (s *CertificateStorage) Store(enrollmentID uint, certificateNumber string) (string, error) {
	payload := map[string]interface{}{
		"enrollment_id":      enrollmentID,
		"certificate_number": certificateNumber,
		"template":           "course-completion",
	}

	resp, err := s.client.R().SetBody(payload).Post("certificates")
	if err != nil {
		log.Printf("[CERT-STORE] Failed to store certificate %s: %v", certificateNumber, err)
		return "", err
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		log.Printf("[CERT-STORE] Non-2xx storing certificate: %d, %s", resp.StatusCode(), resp.String())
		return "", fmt.Errorf("certificate store error: %d", resp.StatusCode())
	}

	var storeResp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Body(), &storeResp); err != nil {
		return "", err
	}
	if storeResp.URL == "" {
		return "", fmt.Errorf("certificate store returned empty url")
	}
	return storeResp.URL, nil
}
