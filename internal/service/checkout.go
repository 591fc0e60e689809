package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/session"
	"nawaem/backend/internal/store"
	"nawaem/backend/internal/xid"
)

// Checkout commits the session cart as one sale. On success the cart is
// emptied and the invoice is kept on the session.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.Invoice, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return domain.Invoice{}, ErrNoSession
	}
	current, err := s.sessions.Get(ctx, sess.ID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if len(current.Cart) == 0 {
		return domain.Invoice{}, store.ErrEmptyCart
	}

	ref := req.Customer
	ref.Name = strings.TrimSpace(ref.Name)
	ref.Phone = strings.TrimSpace(ref.Phone)
	ref.Address = strings.TrimSpace(ref.Address)
	ref.Handle = normalizeHandle(ref.Handle)
	if ref.ID < 1 && ref.Name == "" {
		return domain.Invoice{}, fmt.Errorf("%w: customer name is required", store.ErrInvalidInput)
	}

	lines := make([]domain.SaleLine, 0, len(current.Cart))
	for _, line := range current.Cart {
		lines = append(lines, domain.SaleLine{VariantID: line.VariantID, Qty: line.Qty})
	}

	soldAt := s.now()
	committed, err := s.repo.CommitSale(ctx, domain.SaleCommit{
		Customer:  ref,
		InvoiceID: xid.Invoice(soldAt.In(s.opts.Location)),
		SoldAt:    soldAt,
		Lines:     lines,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) || errors.Is(err, store.ErrInsufficientStock) || errors.Is(err, store.ErrNotFound) {
			return domain.Invoice{}, err
		}
		log.Printf("[service] ERROR: sale commit failed session=%s: %v", sess.ID, err)
		return domain.Invoice{}, ErrSaleNotRecorded
	}

	invoice := s.buildInvoice(committed, soldAt)

	// The sale is durable at this point; a failed session write only leaves a
	// stale cart behind.
	if _, err := s.sessions.Update(ctx, sess.ID, func(current *session.Session) error {
		current.Cart = []domain.CartLine{}
		current.LastInvoice = &invoice
		return nil
	}); err != nil {
		log.Printf("[service] WARN: failed to clear cart session=%s invoice=%s: %v", sess.ID, invoice.InvoiceID, err)
	}

	s.logAudit(ctx, "sale_commit", "invoice", invoice.InvoiceID,
		fmt.Sprintf("customer=%d,lines=%d,items=%d,total=%s,profit=%s", invoice.Customer.ID, len(invoice.Lines), invoice.ItemCount, invoice.Total, invoice.Profit))
	if committed.CustomerCreated {
		s.logAudit(ctx, "customer_create", "customer", fmt.Sprint(committed.Customer.ID), "name="+committed.Customer.Name)
	}
	return invoice, nil
}

func (s *Service) LastInvoice(ctx context.Context) (*domain.Invoice, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	current, err := s.sessions.Get(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if current.LastInvoice == nil {
		return nil, store.ErrNotFound
	}
	return current.LastInvoice, nil
}

func (s *Service) buildInvoice(committed *domain.CommittedSale, soldAt time.Time) domain.Invoice {
	invoice := domain.Invoice{
		InvoiceID:       committed.InvoiceID,
		Customer:        committed.Customer,
		CustomerCreated: committed.CustomerCreated,
		Lines:           committed.Records,
		Total:           decimal.Zero,
		Profit:          decimal.Zero,
		MessageLink:     MessageLink(committed.Customer, s.opts.PhoneCountryCode),
		SoldAt:          soldAt,
	}
	for _, rec := range committed.Records {
		invoice.ItemCount += rec.Qty
		invoice.Total = invoice.Total.Add(rec.Total)
		invoice.Profit = invoice.Profit.Add(rec.Profit)
	}
	invoice.Text = s.invoiceText(invoice)
	return invoice
}

var printer = message.NewPrinter(language.English)

func formatMoney(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return printer.Sprintf("%d", d.IntPart())
	}
	return printer.Sprintf("%.2f", d.InexactFloat64())
}

func (s *Service) invoiceText(inv domain.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.opts.StoreName)
	fmt.Fprintf(&b, "Invoice %s\n", inv.InvoiceID)
	fmt.Fprintf(&b, "Date: %s\n", inv.SoldAt.In(s.opts.Location).Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Customer: %s\n", inv.Customer.Name)
	if inv.Customer.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", inv.Customer.Phone)
	}
	b.WriteString("----------------\n")
	for _, rec := range inv.Lines {
		fmt.Fprintf(&b, "%s x%d @ %s = %s\n",
			domain.ItemLabel(rec.ProductName, rec.Color, rec.Size), rec.Qty, formatMoney(rec.UnitPrice), formatMoney(rec.Total))
	}
	b.WriteString("----------------\n")
	fmt.Fprintf(&b, "Items: %d\n", inv.ItemCount)
	fmt.Fprintf(&b, "Total: %s\n", formatMoney(inv.Total))
	return b.String()
}
