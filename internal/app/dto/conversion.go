package dto

type ConversionResult struct {
	BookingID             string   `json:"booking_id"`
	BookingReference      string   `json:"booking_reference"`
	EngagementID          string   `json:"engagement_id"`
	FinancialRecordID     string   `json:"financial_record_id"`
	FinancialRecordNumber string   `json:"financial_record_number"`
	LegalRecordID         string   `json:"legal_record_id"`
	Hours                 int      `json:"hours"`
	Minutes               int      `json:"minutes"`
	Price                 MoneyDTO `json:"price"`
}
