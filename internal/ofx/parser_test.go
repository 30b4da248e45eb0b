package ofx

import (
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
)

func TestPreprocessOFX(t *testing.T) {
	p := NewParser()

	t.Run("fixes mixed-case severity", func(t *testing.T) {
		input := "<SEVERITY>Info</SEVERITY>"
		assert.Equal(t, "<SEVERITY>INFO</SEVERITY>", p.preprocessOFX(input))
	})

	t.Run("closes unterminated SGML tags", func(t *testing.T) {
		input := "<STMTTRN\n<TRNTYPE>DEBIT</TRNTYPE>"
		assert.Equal(t, "<STMTTRN>\n<TRNTYPE>DEBIT</TRNTYPE>", p.preprocessOFX(input))
	})

	t.Run("trims leading blank lines", func(t *testing.T) {
		input := "\n\n  OFXHEADER:100"
		assert.Equal(t, "OFXHEADER:100", p.preprocessOFX(input))
	})
}

func TestExtractDescription(t *testing.T) {
	p := NewParser()

	t.Run("prefers payee name", func(t *testing.T) {
		tx := ofxgo.Transaction{
			Name:  "POS TRANSACTION",
			Payee: &ofxgo.Payee{Name: "Whole Foods Market"},
		}
		assert.Equal(t, "Whole Foods Market", p.extractDescription(tx))
	})

	t.Run("falls back to memo for generic names", func(t *testing.T) {
		tx := ofxgo.Transaction{
			Name: "DEBIT",
			Memo: "SHELL OIL 574481",
		}
		assert.Equal(t, "SHELL OIL 574481", p.extractDescription(tx))
	})

	t.Run("strips bank prefixes", func(t *testing.T) {
		tx := ofxgo.Transaction{Name: "POS PURCHASE TRADER JOES #123"}
		assert.Equal(t, "TRADER JOES #123", p.extractDescription(tx))
	})

	t.Run("strips leading date fragments", func(t *testing.T) {
		tx := ofxgo.Transaction{Name: "01/15 STARBUCKS STORE"}
		assert.Equal(t, "STARBUCKS STORE", p.extractDescription(tx))
	})
}

func TestRecordHash(t *testing.T) {
	posted := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	base := Record{
		PostedAt:    posted,
		Description: "STARBUCKS STORE 123",
		AccountID:   "acct-1",
		Amount:      4.75,
	}

	t.Run("identical records collide", func(t *testing.T) {
		other := base
		// Time of day is ignored; only the posted date identifies a line.
		other.PostedAt = posted.Add(3 * time.Hour)
		assert.Equal(t, base.Hash(), other.Hash())
	})

	t.Run("any field change produces a distinct hash", func(t *testing.T) {
		byAmount := base
		byAmount.Amount = 5.75
		assert.NotEqual(t, base.Hash(), byAmount.Hash())

		byDescription := base
		byDescription.Description = "STARBUCKS STORE 456"
		assert.NotEqual(t, base.Hash(), byDescription.Hash())

		byDate := base
		byDate.PostedAt = posted.AddDate(0, 0, 1)
		assert.NotEqual(t, base.Hash(), byDate.Hash())

		byAccount := base
		byAccount.AccountID = "acct-2"
		assert.NotEqual(t, base.Hash(), byAccount.Hash())
	})
}

func TestDeduplicate(t *testing.T) {
	posted := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	coffee := Record{PostedAt: posted, Description: "STARBUCKS STORE 123", AccountID: "acct-1", Amount: 4.75}
	groceries := Record{PostedAt: posted, Description: "WHOLEFDS #321", AccountID: "acct-1", Amount: 54.20}

	t.Run("drops repeated lines and keeps order", func(t *testing.T) {
		unique, dropped := Deduplicate([]Record{coffee, groceries, coffee, coffee})
		assert.Equal(t, []Record{coffee, groceries}, unique)
		assert.Equal(t, 2, dropped)
	})

	t.Run("same file imported twice yields one copy of each line", func(t *testing.T) {
		file := []Record{coffee, groceries}
		unique, dropped := Deduplicate(append(append([]Record{}, file...), file...))
		assert.Len(t, unique, 2)
		assert.Equal(t, 2, dropped)
	})

	t.Run("passes distinct records through untouched", func(t *testing.T) {
		unique, dropped := Deduplicate([]Record{coffee, groceries})
		assert.Equal(t, []Record{coffee, groceries}, unique)
		assert.Zero(t, dropped)
	})

	t.Run("handles empty input", func(t *testing.T) {
		unique, dropped := Deduplicate(nil)
		assert.Empty(t, unique)
		assert.Zero(t, dropped)
	})
}

func TestIsGenericDescription(t *testing.T) {
	assert.True(t, isGenericDescription("DEBIT"))
	assert.True(t, isGenericDescription("pos transaction"))
	assert.False(t, isGenericDescription("STARBUCKS STORE 123"))
}
