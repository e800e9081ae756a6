package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"costa_listings/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valF64(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func valJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertProperty(ctx context.Context, p domain.Property) error {
	features, err := valJSON(p.Features, "[]")
	if err != nil {
		return fmt.Errorf("encode features of %s: %w", p.Reference, err)
	}
	descs, err := valJSON(p.Descriptions, "{}")
	if err != nil {
		return fmt.Errorf("encode descriptions of %s: %w", p.Reference, err)
	}
	imgs, err := valJSON(p.Images, "[]")
	if err != nil {
		return fmt.Errorf("encode images of %s: %w", p.Reference, err)
	}
	_, err = r.db.ExecContext(ctx, upsertListingSQL,
		p.Reference,
		p.Source,
		p.PropertyType,
		p.Bedrooms,
		p.Bathrooms,
		p.Price,
		p.Currency,
		p.Town,
		valStr(p.LocationDetail),
		valStr(p.Province),
		valStr(p.Region),
		valF64(p.Lat),
		valF64(p.Lng),
		valF64(p.BuiltArea),
		valF64(p.PlotArea),
		features,
		p.HasPool,
		p.HasTerrace,
		p.HasParking,
		p.HasSeaview,
		p.HasGolfview,
		p.IsGolf,
		p.IsPriority,
		descs,
		imgs,
		valStr(p.Developer),
		p.ProjectName,
		p.Slug,
	)
	return err
}

func (r *Repo) LogSkip(ctx context.Context, reference, source, reason string) error {
	_, err := r.db.ExecContext(ctx, insertSkipSQL, source, reference, reason)
	return err
}

func (r *Repo) GetProperty(ctx context.Context, reference string) (domain.Property, error) {
	p, err := scanListing(r.db.QueryRowContext(ctx, getListingSQL, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProperties(ctx context.Context, q domain.PropertyQuery) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, listListingsSQL, q.Town, q.Town, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (domain.Property, error) {
	var p domain.Property
	var detail, province, region, developer sql.NullString
	var lat, lng, built, plot sql.NullFloat64
	var featuresJSON, descsJSON, imagesJSON []byte

	if err := s.Scan(
		&p.Reference, &p.Source, &p.PropertyType, &p.Bedrooms, &p.Bathrooms, &p.Price, &p.Currency, &p.Town,
		&detail, &province, &region,
		&lat, &lng, &built, &plot,
		&featuresJSON,
		&p.HasPool, &p.HasTerrace, &p.HasParking, &p.HasSeaview, &p.HasGolfview, &p.IsGolf, &p.IsPriority,
		&descsJSON, &imagesJSON,
		&developer, &p.ProjectName, &p.Slug,
	); err != nil {
		return domain.Property{}, err
	}

	p.LocationDetail, p.Province, p.Region, p.Developer = detail.String, province.String, region.String, developer.String
	p.Lat, p.Lng, p.BuiltArea, p.PlotArea = lat.Float64, lng.Float64, built.Float64, plot.Float64

	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &p.Features); err != nil {
			return domain.Property{}, fmt.Errorf("decode features of %s: %w", p.Reference, err)
		}
	}
	if len(descsJSON) > 0 {
		if err := json.Unmarshal(descsJSON, &p.Descriptions); err != nil {
			return domain.Property{}, fmt.Errorf("decode descriptions of %s: %w", p.Reference, err)
		}
	}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return domain.Property{}, fmt.Errorf("decode images of %s: %w", p.Reference, err)
		}
	}
	return p, nil
}
