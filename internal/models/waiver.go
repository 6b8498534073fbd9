package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// CurrentWaiverVersion is incremented whenever the waiver terms change
const CurrentWaiverVersion = "1.0"

// Waiver is one signature event. Rows are immutable: a re-signature creates
// a new row pointing at the one it supersedes, never an update.
type Waiver struct {
	ID uuid.UUID `json:"id" db:"id"`

	// Optional ledger linkage; nil for public-flow waivers signed before the
	// scheduler has assigned a slot
	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`

	ClientName  string `json:"client_name" db:"client_name"`
	ClientEmail string `json:"client_email" db:"client_email"`

	// Typed full legal name, the digital signature itself
	LegalNameSignature string `json:"legal_name_signature" db:"legal_name_signature"`

	// Evidentiary metadata only, never used for security decisions
	IPAddress     string  `json:"ip_address" db:"ip_address"`
	UserAgent     *string `json:"user_agent,omitempty" db:"user_agent"`
	DeviceSummary *string `json:"device_summary,omitempty" db:"device_summary"`

	WaiverVersion  string `json:"waiver_version" db:"waiver_version"`
	WaiverTextHash string `json:"waiver_text_hash" db:"waiver_text_hash"`

	// Set when a later signature replaces this one for the same booking
	SupersedesWaiverID *uuid.UUID `json:"supersedes_waiver_id,omitempty" db:"supersedes_waiver_id"`

	SignedAt  time.Time `json:"signed_at" db:"signed_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SignWaiverRequest is the waiver submission payload
type SignWaiverRequest struct {
	Email        string  `json:"email" binding:"required"`
	LegalName    string  `json:"legal_name" binding:"required"`
	AgreeToTerms bool    `json:"agree_to_terms"`
	BookingID    *string `json:"booking_id,omitempty"`
	OrderID      *string `json:"order_id,omitempty"`
	// Deliberate re-signature of an already-waivered booking
	Supersede bool `json:"supersede,omitempty"`
}

// HashWaiverText returns the hex SHA-256 of the waiver terms so each
// signature records exactly which text was agreed to.
func HashWaiverText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// WaiverText is the liability release shown to and accepted by the customer.
const WaiverText = `ASSUMPTION OF RISK, WAIVER OF LIABILITY, AND INDEMNITY AGREEMENT

PLEASE READ CAREFULLY BEFORE SIGNING

1. DESCRIPTION OF ACTIVITIES
I am voluntarily participating in snowboard filming and videography services ("Services") provided by Momentum Clips ("Company"). I understand that the Services involve being filmed while snowboarding, skiing, or engaging in other snow sports activities on mountain terrain.

2. ASSUMPTION OF RISK
I acknowledge and understand that participating in snow sports and being filmed while doing so involves INHERENT RISKS that cannot be eliminated regardless of the care taken to avoid injuries. I VOLUNTARILY ASSUME ALL RISKS associated with participation in these activities.

3. RELEASE AND WAIVER OF LIABILITY
In consideration for being allowed to participate in the Services, I hereby RELEASE, WAIVE, DISCHARGE, AND COVENANT NOT TO SUE Momentum Clips, its owners, directors, officers, employees, agents, contractors, and representatives from any and all liability, claims, demands, actions, or causes of action arising out of or related to any loss, damage, or injury, including death, that may be sustained by me while participating in the Services.

4. INDEMNIFICATION
I agree to INDEMNIFY AND HOLD HARMLESS the Releasees from any loss, liability, damage, or costs that may be incurred due to my participation in the Services.

5. MEDICAL ACKNOWLEDGMENT
I certify that I am physically fit and have no medical conditions that would prevent my full participation in snow sports activities.

6. MEDIA RELEASE
I grant Momentum Clips permission to use any photographs, video footage, or other recordings of me for promotional, commercial, or any other lawful purpose without compensation.

7. ACKNOWLEDGMENT OF UNDERSTANDING
BY TYPING MY FULL LEGAL NAME BELOW, I ACKNOWLEDGE THAT I HAVE READ, UNDERSTOOD, AND AGREE TO BE BOUND BY ALL OF THE TERMS AND CONDITIONS OF THIS AGREEMENT.`
