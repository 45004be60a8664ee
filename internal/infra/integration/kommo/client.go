// Package kommo espelha os leads capturados no CRM Kommo (API v4).
package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
)

type Client struct {
	apiToken string
	baseURL  string
	statusID int
	http     *http.Client
	logger   *zap.Logger
}

// NewClient: statusID é a etapa do funil do Kommo onde o lead entra (0 = etapa padrão).
func NewClient(baseURL, apiToken string, statusID int) *Client {
	return &Client{
		apiToken: apiToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		statusID: statusID,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   zap.L().With(zap.String("component", "kommo")),
	}
}

// Notify só reage a lead.captured.
func (c *Client) Notify(ctx context.Context, event entity.LeadEvent) error {
	if event.Type != entity.EventLeadCaptured || event.Lead == nil {
		return nil
	}
	lead := event.Lead

	phone := lead.Phone
	if phone == "" {
		phone = lead.WhatsApp
	}
	var tags []string
	if lead.Source != "" {
		tags = append(tags, lead.Source)
	}
	if lead.Estado != "" {
		tags = append(tags, lead.Estado)
	}

	_, err := c.CreateLead(ctx, CreateLeadInput{
		Name:    lead.Name,
		Company: lead.Company,
		Phone:   phone,
		Email:   lead.Email,
		Tags:    tags,
	})
	return err
}

func (c *Client) CreateLead(ctx context.Context, input CreateLeadInput) (int, error) {
	if c.apiToken == "" {
		return 0, eris.New("kommo: api token não configurado")
	}

	// Primeiro, criar ou buscar contato
	contactID, err := c.findOrCreateContact(ctx, input)
	if err != nil {
		return 0, eris.Wrap(err, "kommo: criar/buscar contato")
	}

	name := input.Name
	if input.Company != "" {
		name = fmt.Sprintf("%s - %s", input.Name, input.Company)
	}
	lead := map[string]any{
		"name": name,
		"_embedded": map[string]any{
			"tags":     tagList(input.Tags),
			"contacts": []map[string]any{{"id": contactID}},
		},
	}
	if c.statusID > 0 {
		lead["status_id"] = c.statusID
	}

	var result embeddedLeads
	status, err := c.do(ctx, http.MethodPost, "/leads", []map[string]any{lead}, &result)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, eris.Errorf("kommo: criar lead: status %d", status)
	}
	if len(result.Embedded.Leads) == 0 {
		return 0, eris.New("kommo: lead não criado")
	}

	leadID := result.Embedded.Leads[0].ID
	c.logger.Info("lead criado no Kommo", zap.Int("kommo_lead_id", leadID), zap.Int("contact_id", contactID))
	return leadID, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, input CreateLeadInput) (int, error) {
	if input.Phone != "" {
		contactID, err := c.findContactByPhone(ctx, input.Phone)
		if err != nil {
			return 0, err
		}
		if contactID > 0 {
			return contactID, nil
		}
	}

	// Se não encontrou, criar novo contato
	return c.createContact(ctx, input)
}

// findContactByPhone devolve 0 quando o Kommo não conhece o número.
func (c *Client) findContactByPhone(ctx context.Context, phone string) (int, error) {
	var result embeddedContacts
	status, err := c.do(ctx, http.MethodGet, "/contacts?query="+url.QueryEscape(phone), nil, &result)
	if err != nil {
		return 0, err
	}
	switch status {
	case http.StatusNoContent:
		return 0, nil
	case http.StatusOK:
	default:
		return 0, eris.Errorf("kommo: buscar contato: status %d", status)
	}

	if len(result.Embedded.Contacts) > 0 {
		return result.Embedded.Contacts[0].ID, nil
	}
	return 0, nil
}

func (c *Client) createContact(ctx context.Context, input CreateLeadInput) (int, error) {
	var fields []map[string]any
	if input.Phone != "" {
		fields = append(fields, customField("PHONE", input.Phone))
	}
	if input.Email != "" {
		fields = append(fields, customField("EMAIL", input.Email))
	}
	contact := map[string]any{
		"name":                 input.Name,
		"custom_fields_values": fields,
	}

	var result embeddedContacts
	status, err := c.do(ctx, http.MethodPost, "/contacts", []map[string]any{contact}, &result)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return 0, eris.Errorf("kommo: criar contato: status %d", status)
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, eris.New("kommo: resposta sem ID do contato criado")
	}
	return result.Embedded.Contacts[0].ID, nil
}

// do devolve o status HTTP; o corpo só é decodificado em 2xx com conteúdo.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, eris.Wrap(err, "kommo: serializar payload")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, eris.Wrap(err, "kommo: montar requisição")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrapf(err, "kommo: %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, eris.Wrap(err, "kommo: ler resposta")
	}
	if resp.StatusCode >= 300 {
		c.logger.Debug("resposta de erro do Kommo", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return resp.StatusCode, nil
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, eris.Wrap(err, "kommo: decodificar resposta")
		}
	}
	return resp.StatusCode, nil
}

func customField(code, value string) map[string]any {
	return map[string]any{
		"field_code": code,
		"values":     []map[string]any{{"value": value, "enum_code": "WORK"}},
	}
}

func tagList(tags []string) []map[string]any {
	out := make([]map[string]any, 0, len(tags))
	for _, t := range tags {
		out = append(out, map[string]any{"name": t})
	}
	return out
}
