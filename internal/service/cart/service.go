package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"farmtable/internal/domain"
)

type Service struct {
	repo     cartRepo
	products productReader
	logger   *log.Logger
}

type cartRepo interface {
	GetOrCreate(ctx context.Context, buyerID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
}

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartRepo, products productReader, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, products: products, logger: logger}
}

// Get returns the caller's cart, creating an empty one on first use.
func (s *Service) Get(ctx context.Context, id domain.Identity) (*domain.Cart, error) {
	if err := requireBuyer(id); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, id.UserID)
}

// AddItem adds quantity of a product, merging with an existing line.
func (s *Service) AddItem(ctx context.Context, id domain.Identity, productID string, quantity int) (*domain.Cart, error) {
	if err := requireBuyer(id); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: productId required", domain.ErrInvalidInput)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.SellerID == id.UserID {
		return nil, fmt.Errorf("%w: cannot buy your own product", domain.ErrInvalidInput)
	}

	c, err := s.repo.GetOrCreate(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.AddItem(ctx, c.ID, productID, quantity); err != nil {
		return nil, err
	}
	s.logger.Printf("cart: add buyer_id=%s product_id=%s qty=%d", id.UserID, productID, quantity)
	return s.repo.GetOrCreate(ctx, id.UserID)
}

// SetQuantity replaces a line's quantity; zero or less removes it.
func (s *Service) SetQuantity(ctx context.Context, id domain.Identity, productID string, quantity int) (*domain.Cart, error) {
	if err := requireBuyer(id); err != nil {
		return nil, err
	}
	c, err := s.repo.GetOrCreate(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetQuantity(ctx, c.ID, productID, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, id.UserID)
}

func (s *Service) RemoveItem(ctx context.Context, id domain.Identity, productID string) (*domain.Cart, error) {
	if err := requireBuyer(id); err != nil {
		return nil, err
	}
	c, err := s.repo.GetOrCreate(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, c.ID, productID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, id.UserID)
}

func requireBuyer(id domain.Identity) error {
	if id.UserID == "" || id.Role != domain.RoleBuyer {
		return domain.ErrForbidden
	}
	return nil
}
