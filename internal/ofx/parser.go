// Package ofx parses OFX/QFX bank exports into records the ingestion
// pipeline can consume.
package ofx

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
)

// Record is one spend line extracted from an OFX statement. Credits are
// filtered out during parsing; the pipeline only tracks spending.
type Record struct {
	PostedAt    time.Time
	Description string
	AccountID   string
	Amount      float64
}

// Hash identifies a record for duplicate detection. Banks repeat the same
// line across overlapping statement exports, so identity is the posted
// date, amount, description and account rather than any bank-assigned ID.
func (r Record) Hash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		r.PostedAt.Format("2006-01-02"),
		r.Amount,
		r.Description,
		r.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Deduplicate drops records whose hash was already seen, preserving order.
// It returns the unique records and the number dropped.
func Deduplicate(records []Record) ([]Record, int) {
	seen := make(map[string]bool, len(records))
	unique := make([]Record, 0, len(records))
	for _, record := range records {
		h := record.Hash()
		if seen[h] {
			continue
		}
		seen[h] = true
		unique = append(unique, record)
	}
	return unique, len(records) - len(unique)
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in real-world OFX exports.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file and returns its debit records.
func (p *Parser) ParseFile(_ context.Context, reader io.Reader) ([]Record, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	processedContent := p.preprocessOFX(string(content))

	resp, err := ofxgo.ParseResponse(strings.NewReader(processedContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var records []Record
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			records = append(records, p.convertTransactions(
				stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			records = append(records, p.convertTransactions(
				stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	slog.Info("parsed OFX file",
		"records", len(records),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return records, nil
}

// convertTransactions maps OFX transactions to records, dropping credits.
func (p *Parser) convertTransactions(txns []ofxgo.Transaction, accountID string) []Record {
	var records []Record
	for _, ofxTx := range txns {
		// OFX uses negative amounts for debits.
		amount, _ := ofxTx.TrnAmt.Float64()
		if amount >= 0 {
			continue
		}

		records = append(records, Record{
			PostedAt:    ofxTx.DtPosted.Time,
			Description: p.extractDescription(ofxTx),
			AccountID:   accountID,
			Amount:      -amount,
		})
	}
	return records
}

// extractDescription gets the cleanest available merchant description.
func (p *Parser) extractDescription(tx ofxgo.Transaction) string {
	// PAYEE, when present, is usually cleaner than NAME
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}

	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Strip leading "MM/DD " date fragments some banks prepend
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic to be a
// useful classification input on its own.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
