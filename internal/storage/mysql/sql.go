package mysql

const upsertListingSQL = `
INSERT INTO listings
  (reference, source, property_type, bedrooms, bathrooms, price, currency, town, location_detail,
   province, region, lat, lng, built_area, plot_area, features, has_pool, has_terrace, has_parking,
   has_seaview, has_golfview, is_golf, is_priority, descriptions, images, developer, project_name, slug)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  source          = VALUES(source),
  property_type   = VALUES(property_type),
  bedrooms        = VALUES(bedrooms),
  bathrooms       = VALUES(bathrooms),
  price           = VALUES(price),
  currency        = VALUES(currency),
  town            = VALUES(town),
  location_detail = VALUES(location_detail),
  province        = VALUES(province),
  region          = VALUES(region),
  lat             = VALUES(lat),
  lng             = VALUES(lng),
  built_area      = VALUES(built_area),
  plot_area       = VALUES(plot_area),
  features        = VALUES(features),
  has_pool        = VALUES(has_pool),
  has_terrace     = VALUES(has_terrace),
  has_parking     = VALUES(has_parking),
  has_seaview     = VALUES(has_seaview),
  has_golfview    = VALUES(has_golfview),
  is_golf         = VALUES(is_golf),
  is_priority     = VALUES(is_priority),
  descriptions    = VALUES(descriptions),
  images          = VALUES(images),
  developer       = VALUES(developer),
  project_name    = VALUES(project_name),
  slug            = VALUES(slug),
  updated_at      = CURRENT_TIMESTAMP
`

const insertSkipSQL = `
INSERT INTO ingest_skips (source, reference, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listingColumns = `
  reference, source, property_type, bedrooms, bathrooms, price, currency, town, location_detail,
  province, region, lat, lng, built_area, plot_area, features, has_pool, has_terrace, has_parking,
  has_seaview, has_golfview, is_golf, is_priority, descriptions, images, developer, project_name, slug`

const getListingSQL = `SELECT` + listingColumns + `
FROM listings
WHERE reference = ?
`

// An empty town argument disables the town filter.
const listListingsSQL = `SELECT` + listingColumns + `
FROM listings
WHERE (? = '' OR LOWER(town) = LOWER(?))
ORDER BY price ASC, reference ASC
LIMIT ?
`
