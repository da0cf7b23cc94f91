package venice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/davidbz/venicedesk/internal/domain"
)

const charactersPath = "/characters"

var errEmptySlug = fmt.Errorf("%w: character slug is required", domain.ErrInvalidRequest)

// ListCharacters returns the characters visible to the credential.
func (c *Client) ListCharacters(ctx context.Context, cred domain.Credential) ([]domain.Character, domain.ResponseMetadata, error) {
	raw, meta, err := c.Execute(ctx, cred, http.MethodGet, charactersPath, nil)
	if err != nil {
		return nil, meta, err
	}

	characters := []domain.Character{}
	if err := decode(unwrap(raw, "characters", "data"), &characters); err != nil {
		return nil, meta, fmt.Errorf("failed to decode characters: %w", err)
	}

	return characters, meta, nil
}

// GetCharacter returns one character by slug.
func (c *Client) GetCharacter(ctx context.Context, cred domain.Credential, slug string) (*domain.Character, domain.ResponseMetadata, error) {
	if slug == "" {
		return nil, domain.ResponseMetadata{}, errEmptySlug
	}

	raw, meta, err := c.Execute(ctx, cred, http.MethodGet, characterPath(slug), nil)
	if err != nil {
		return nil, meta, err
	}

	return decodeCharacter(raw, meta)
}

// CreateCharacter creates a character.
func (c *Client) CreateCharacter(
	ctx context.Context,
	cred domain.Credential,
	character *domain.Character,
) (*domain.Character, domain.ResponseMetadata, error) {
	if character == nil {
		return nil, domain.ResponseMetadata{}, errNilRequest
	}

	payload, err := JSONPayload(character)
	if err != nil {
		return nil, domain.ResponseMetadata{}, err
	}

	raw, meta, err := c.Execute(ctx, cred, http.MethodPost, charactersPath, payload)
	if err != nil {
		return nil, meta, err
	}

	return decodeCharacter(raw, meta)
}

// UpdateCharacter applies a partial update.
func (c *Client) UpdateCharacter(
	ctx context.Context,
	cred domain.Credential,
	slug string,
	patch map[string]any,
) (*domain.Character, domain.ResponseMetadata, error) {
	if slug == "" {
		return nil, domain.ResponseMetadata{}, errEmptySlug
	}

	payload, err := JSONPayload(patch)
	if err != nil {
		return nil, domain.ResponseMetadata{}, err
	}

	raw, meta, err := c.Execute(ctx, cred, http.MethodPatch, characterPath(slug), payload)
	if err != nil {
		return nil, meta, err
	}

	return decodeCharacter(raw, meta)
}

// DeleteCharacter removes a character.
func (c *Client) DeleteCharacter(ctx context.Context, cred domain.Credential, slug string) (domain.ResponseMetadata, error) {
	if slug == "" {
		return domain.ResponseMetadata{}, errEmptySlug
	}

	_, meta, err := c.Execute(ctx, cred, http.MethodDelete, characterPath(slug), nil)
	return meta, err
}

func characterPath(slug string) string {
	return charactersPath + "/" + url.PathEscape(slug)
}

func decodeCharacter(raw []byte, meta domain.ResponseMetadata) (*domain.Character, domain.ResponseMetadata, error) {
	var character domain.Character
	if err := decode(unwrap(raw, "character", "data"), &character); err != nil {
		return nil, meta, fmt.Errorf("failed to decode character: %w", err)
	}
	return &character, meta, nil
}
