package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeKeyDeterministic(t *testing.T) {
	a := MakeKey("pharmanet", "drug", "001", "Paracetamol")
	b := MakeKey("pharmanet", "drug", "001", "Paracetamol")
	assert.Equal(t, a, b)

	// Order-sensitive: swapped attributes derive a different key
	c := MakeKey("pharmanet", "drug", "Paracetamol", "001")
	assert.NotEqual(t, a, c)
}

func TestParseKeyRoundTrip(t *testing.T) {
	key := MakeKey("pharmanet", "company", "CRN001", "Sun Pharma")
	parts := ParseKey(key)
	require.Len(t, parts, 4)
	assert.Equal(t, "pharmanet", parts[0])
	assert.Equal(t, "company", parts[1])
	assert.Equal(t, "CRN001", parts[2])
	assert.Equal(t, "Sun Pharma", parts[3])
}

func TestEntityKindsDoNotCollide(t *testing.T) {
	c := NewPharmaContract("pharmanet")

	// A purchase order and a shipment share the (buyerCRN, drugName)
	// attribute tuple but must live under distinct keys.
	poKey := c.poKey("DIST001", "Paracetamol")
	shipKey := c.shipmentKey("DIST001", "Paracetamol")
	assert.NotEqual(t, poKey, shipKey)
}

func TestCRNFromCompanyKey(t *testing.T) {
	c := NewPharmaContract("pharmanet")

	crn, ok := c.crnFromCompanyKey(c.companyKey("MAN001", "Sun Pharma"))
	require.True(t, ok)
	assert.Equal(t, "MAN001", crn)

	_, ok = c.crnFromCompanyKey("CONSUMER-AADHAR-42")
	assert.False(t, ok)

	_, ok = c.crnFromCompanyKey(c.drugKey("001", "Paracetamol"))
	assert.False(t, ok)
}

func TestCompanyPrefixCoversNameComponent(t *testing.T) {
	c := NewPharmaContract("pharmanet")

	prefix := c.companyPrefix("MAN001")
	key := c.companyKey("MAN001", "Sun Pharma")
	assert.True(t, strings.HasPrefix(key, prefix))

	// The prefix must not match a different CRN that shares a textual prefix
	other := c.companyKey("MAN0012", "Moon Pharma")
	assert.False(t, strings.HasPrefix(other, prefix))
}
