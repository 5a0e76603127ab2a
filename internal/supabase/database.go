package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"luxegen-backend/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// --- Campaigns ---

// InsertCampaign writes a finished campaign in a single statement.
func (d *DatabaseClient) InsertCampaign(ctx context.Context, c *models.Campaign) error {
	productJSON, err := json.Marshal(c.Product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}
	scenesJSON, err := json.Marshal(c.Scenes)
	if err != nil {
		return fmt.Errorf("failed to encode scenes: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, owner_id, status, persona_id, product_data, scenes_data, generated_images, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.OwnerID, string(c.Status), c.PersonaID, productJSON, scenesJSON,
		pq.Array(c.RenderedImageURLs), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (d *DatabaseClient) GetCampaign(ctx context.Context, campaignID uuid.UUID, ownerID string) (*models.Campaign, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, owner_id, status, persona_id, product_data, scenes_data, generated_images, created_at
		FROM campaigns
		WHERE id = $1 AND owner_id = $2
	`, campaignID, ownerID)

	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", campaignID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns returns the owner's campaigns, newest first. An empty owner lists every campaign.
// The inline product image is left out of list results.
func (d *DatabaseClient) ListCampaigns(ctx context.Context, ownerID string) ([]models.Campaign, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, owner_id, status, persona_id, product_data - 'image', scenes_data, generated_images, created_at
		FROM campaigns
		WHERE $1 = '' OR owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}

	return campaigns, rows.Err()
}

const campaignColumns = `id, owner_id, status, persona_id, product_data, scenes_data, generated_images, created_at`

// AppendCampaignImage adds url to the end of a campaign's rendered images in one statement.
func (d *DatabaseClient) AppendCampaignImage(ctx context.Context, campaignID uuid.UUID, ownerID, url string) (*models.Campaign, error) {
	row := d.db.QueryRowContext(ctx, `
		UPDATE campaigns
		SET generated_images = array_append(generated_images, $1)
		WHERE id = $2 AND owner_id = $3
		RETURNING `+campaignColumns,
		url, campaignID, ownerID)

	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", campaignID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append campaign image: %w", err)
	}
	return c, nil
}

// RemoveCampaignImage drops the image at index and returns the updated campaign and the removed URL.
// The row is locked for the read-modify-write.
func (d *DatabaseClient) RemoveCampaignImage(ctx context.Context, campaignID uuid.UUID, ownerID string, index int) (*models.Campaign, string, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var urls pq.StringArray
	err = tx.QueryRowContext(ctx, `
		SELECT generated_images FROM campaigns
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`, campaignID, ownerID).Scan(&urls)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("campaign %s: %w", campaignID, models.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to lock campaign: %w", err)
	}

	remaining, removed, err := withoutIndex(urls, index)
	if err != nil {
		return nil, "", err
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE campaigns
		SET generated_images = $1
		WHERE id = $2 AND owner_id = $3
		RETURNING `+campaignColumns,
		pq.Array(remaining), campaignID, ownerID)
	c, err := scanCampaign(row)
	if err != nil {
		return nil, "", fmt.Errorf("failed to update campaign images: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit campaign images: %w", err)
	}
	return c, removed, nil
}

func withoutIndex(urls []string, index int) ([]string, string, error) {
	if index < 0 || index >= len(urls) {
		return nil, "", fmt.Errorf("%w: %d of %d", models.ErrImageIndexOutOfRange, index, len(urls))
	}
	remaining := make([]string, 0, len(urls)-1)
	remaining = append(remaining, urls[:index]...)
	remaining = append(remaining, urls[index+1:]...)
	return remaining, urls[index], nil
}

func (d *DatabaseClient) DeleteCampaign(ctx context.Context, campaignID uuid.UUID, ownerID string) error {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM campaigns
		WHERE id = $1 AND owner_id = $2
	`, campaignID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return expectAffected(res, "campaign", campaignID.String())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var (
		c           models.Campaign
		status      string
		productJSON []byte
		scenesJSON  []byte
		urls        pq.StringArray
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &status, &c.PersonaID, &productJSON, &scenesJSON, &urls, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Status = models.CampaignStatus(status)
	c.RenderedImageURLs = []string(urls)

	if len(productJSON) > 0 {
		if err := json.Unmarshal(productJSON, &c.Product); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
	}
	if len(scenesJSON) > 0 {
		if err := json.Unmarshal(scenesJSON, &c.Scenes); err != nil {
			return nil, fmt.Errorf("decode scenes: %w", err)
		}
	}
	return &c, nil
}

// --- Personas ---

func (d *DatabaseClient) InsertPersona(ctx context.Context, p *models.Persona) error {
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO personas (id, name, reference_image_url, style_tag, physical_description, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, p.ID, p.Name, p.ReferenceImageURL, p.StyleTag, p.PhysicalDescription, p.OwnerID).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert persona: %w", err)
	}
	return nil
}

// GetPersona returns a system persona or one owned by ownerID.
func (d *DatabaseClient) GetPersona(ctx context.Context, personaID, ownerID string) (*models.Persona, error) {
	var p models.Persona
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, reference_image_url, style_tag, physical_description, owner_id, created_at
		FROM personas
		WHERE id = $1 AND (owner_id IS NULL OR owner_id = $2)
	`, personaID, ownerID).Scan(
		&p.ID, &p.Name, &p.ReferenceImageURL, &p.StyleTag, &p.PhysicalDescription, &p.OwnerID, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("persona %s: %w", personaID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	return &p, nil
}

// ListPersonas returns the system catalog followed by the owner's personas.
func (d *DatabaseClient) ListPersonas(ctx context.Context, ownerID string) ([]models.Persona, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, reference_image_url, style_tag, physical_description, owner_id, created_at
		FROM personas
		WHERE owner_id IS NULL OR owner_id = $1
		ORDER BY owner_id NULLS FIRST, created_at ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var personas []models.Persona
	for rows.Next() {
		var p models.Persona
		if err := rows.Scan(
			&p.ID, &p.Name, &p.ReferenceImageURL, &p.StyleTag, &p.PhysicalDescription, &p.OwnerID, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, p)
	}

	return personas, rows.Err()
}

// DeletePersona removes a persona owned by ownerID. System personas cannot be deleted this way.
func (d *DatabaseClient) DeletePersona(ctx context.Context, personaID, ownerID string) error {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM personas
		WHERE id = $1 AND owner_id = $2
	`, personaID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	return expectAffected(res, "persona", personaID)
}

// --- API configs ---

// GetSecret reads a provider key directly from api_configs.
func (d *DatabaseClient) GetSecret(ctx context.Context, provider string) (string, error) {
	var key sql.NullString
	err := d.db.QueryRowContext(ctx, `
		SELECT key_value FROM api_configs WHERE provider = $1
	`, provider).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read api config %s: %w", provider, err)
	}
	return key.String, nil
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func expectAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return nil
}
