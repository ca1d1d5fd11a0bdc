package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

const firestoreCollection = "products"

// Firestore stores products as documents keyed by listing identity.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (c *Firestore) Close() error {
	return c.client.Close()
}

func (c *Firestore) doc(id string) (*firestore.DocumentRef, error) {
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("invalid product id %q: %w", id, models.ErrProductNotFound)
	}
	ref := c.client.Collection(firestoreCollection).Doc(id)
	if ref == nil {
		return nil, fmt.Errorf("invalid product id %q: %w", id, models.ErrProductNotFound)
	}
	return ref, nil
}

func decodeProduct(doc *firestore.DocumentSnapshot) (models.ProductRecord, error) {
	var p models.ProductRecord
	if err := doc.DataTo(&p); err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to unmarshal product data: %w", err)
	}
	p.ID = doc.Ref.ID
	return p, nil
}

// List returns the products with the given ids, or every product when ids is empty.
func (c *Firestore) List(ctx context.Context, ids []string) (map[string]models.ProductRecord, error) {
	products := make(map[string]models.ProductRecord)
	if len(ids) == 0 {
		iter := c.client.Collection(firestoreCollection).Documents(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to iterate products: %w", err)
			}
			p, err := decodeProduct(doc)
			if err != nil {
				return nil, err
			}
			products[p.ID] = p
		}
		return products, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		ref, err := c.doc(id)
		if err != nil {
			slog.Warn("Skipping invalid product id", "id", id)
			continue
		}
		refs = append(refs, ref)
	}
	docs, err := c.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		p, err := decodeProduct(doc)
		if err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, nil
}

func (c *Firestore) Get(ctx context.Context, id string) (models.ProductRecord, error) {
	ref, err := c.doc(id)
	if err != nil {
		return models.ProductRecord{}, err
	}
	doc, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ProductRecord{}, models.ErrProductNotFound
		}
		return models.ProductRecord{}, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	if !doc.Exists() {
		return models.ProductRecord{}, models.ErrProductNotFound
	}
	return decodeProduct(doc)
}

// Create inserts p. Create fails with models.ErrProductExists if the document exists.
func (c *Firestore) Create(ctx context.Context, p models.ProductRecord) (models.ProductRecord, error) {
	ref, err := c.doc(p.ID)
	if err != nil {
		return models.ProductRecord{}, err
	}
	if _, err := ref.Create(ctx, p); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.ProductRecord{}, models.ErrProductExists
		}
		return models.ProductRecord{}, fmt.Errorf("failed to create product %s: %w", p.ID, err)
	}
	return p, nil
}

// Update writes only the fields set in u.
func (c *Firestore) Update(ctx context.Context, id string, u models.ProductUpdate) (models.ProductRecord, error) {
	ref, err := c.doc(id)
	if err != nil {
		return models.ProductRecord{}, err
	}
	updates := firestoreUpdates(u)
	if len(updates) == 0 {
		return c.Get(ctx, id)
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ProductRecord{}, models.ErrProductNotFound
		}
		return models.ProductRecord{}, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return c.Get(ctx, id)
}

func firestoreUpdates(u models.ProductUpdate) []firestore.Update {
	var updates []firestore.Update
	if u.Title != nil {
		updates = append(updates, firestore.Update{Path: "title", Value: *u.Title})
	}
	if u.OriginalNumber != nil {
		updates = append(updates, firestore.Update{Path: "original_number", Value: *u.OriginalNumber})
	}
	if u.ASIN != nil {
		updates = append(updates, firestore.Update{Path: "asin", Value: *u.ASIN})
	}
	if u.BrandID != nil {
		updates = append(updates, firestore.Update{Path: "brand_id", Value: *u.BrandID})
	}
	if u.CurrentAmazonPrice != nil {
		updates = append(updates, firestore.Update{Path: "current_amazon_price", Value: *u.CurrentAmazonPrice})
	}
	if u.CurrentAmazonPriceTimestamp != nil {
		updates = append(updates, firestore.Update{Path: "current_amazon_price_timestamp", Value: *u.CurrentAmazonPriceTimestamp})
	}
	if u.VisynetMaxPrice != nil {
		updates = append(updates, firestore.Update{Path: "visynet_max_price", Value: *u.VisynetMaxPrice})
	}
	return updates
}

// Put creates or fully replaces p.
func (c *Firestore) Put(ctx context.Context, p models.ProductRecord) error {
	ref, err := c.doc(p.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, p); err != nil {
		return fmt.Errorf("failed to put product %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes the product. Deleting a missing product is not an error.
func (c *Firestore) Delete(ctx context.Context, id string) error {
	ref, err := c.doc(id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return nil
		}
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored products using an aggregation query.
func (c *Firestore) Count(ctx context.Context) (int, error) {
	countSnapshot, err := c.client.Collection(firestoreCollection).NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get product count: %w", err)
	}
	countValue, ok := countSnapshot["all"]
	if !ok {
		return 0, fmt.Errorf("count aggregation result was invalid: 'all' key missing")
	}
	return aggregateCount(countValue)
}

func aggregateCount(v interface{}) (int, error) {
	switch val := v.(type) {
	case int64:
		return int(val), nil
	case *firestorepb.Value:
		return int(val.GetIntegerValue()), nil
	default:
		return 0, fmt.Errorf("count aggregation result has unexpected type %T", v)
	}
}
