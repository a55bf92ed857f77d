package api

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Auth

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        UserInfo `json:"user"`
}

type UserInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Login string `json:"login"`
	Role  string `json:"role"`
}

// Scheduling

type GenerateSlotsRequest struct {
	AppointmentType string `json:"appointment_type"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Duration        int    `json:"duration"`
}

type GenerateSlotsResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type AppointmentResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name,omitempty"`
	Date       time.Time `json:"appointment_date"`
	Type       string    `json:"appointment_type"`
	HealthProf int64     `json:"healthprof"`
	Patient    *int64    `json:"patient,omitempty"`
	State      string    `json:"state"`
}

type AvailableSlotResponse struct {
	ID         int64     `json:"id"`
	Date       time.Time `json:"appointment_date"`
	Type       string    `json:"appointment_type"`
	HealthProf int64     `json:"healthprof"`
	DoctorName string    `json:"doctor_name"`
	Speciality *string   `json:"speciality,omitempty"`
}

type AppointmentSummaryResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name,omitempty"`
	Date       time.Time `json:"appointment_date"`
	Type       string    `json:"appointment_type"`
	State      string    `json:"state"`
	DoctorName string    `json:"doctor_name"`
	Speciality *string   `json:"speciality,omitempty"`
}

type RescheduleRequest struct {
	SourceID int64 `json:"source_id"`
	TargetID int64 `json:"target_id"`
}

type SpecialtyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type DoctorResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Speciality *string `json:"speciality,omitempty"`
}

// Prescription

type PrescriptionSaveRequest struct {
	Medicines []MedicineRequest `json:"medicines"`
	Tests     []string          `json:"tests"`
	Vitals    *VitalsRequest    `json:"vitals,omitempty"`
	Remarks   *string           `json:"remarks,omitempty"`
}

type MedicineRequest struct {
	ActiveComponent string  `json:"active_component"`
	Dose            *string `json:"dose,omitempty"`
	Frequency       *string `json:"frequency,omitempty"`
	Duration        *string `json:"duration,omitempty"`
}

type VitalsRequest struct {
	Complaint     *string  `json:"complain,omitempty"`
	BloodPressure *string  `json:"blood_pressure,omitempty"`
	SugarLevel    *float64 `json:"sugar_level,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Height        *float64 `json:"height,omitempty"`
}

type PrescriptionSaveResponse struct {
	Message        string `json:"message"`
	PrescriptionID string `json:"prescription_id"`
}

type PrescriptionViewResponse struct {
	PrescriptionID string                     `json:"prescription_id"`
	AppointmentID  int64                      `json:"appointment_id"`
	Doctor         string                     `json:"doctor"`
	Patient        string                     `json:"patient"`
	Remarks        *string                    `json:"remarks,omitempty"`
	Medicines      []PrescriptionLineResponse `json:"medicines"`
	LabTests       []LabTestEntryResponse     `json:"lab_tests"`
	Vitals         *VitalsResponse            `json:"vitals,omitempty"`
}

type PrescriptionLineResponse struct {
	ID              int64   `json:"id"`
	ActiveComponent string  `json:"active_component"`
	Dose            *string `json:"dose,omitempty"`
	Frequency       *string `json:"frequency,omitempty"`
	Duration        *string `json:"duration,omitempty"`
}

type LabTestEntryResponse struct {
	ID          int64     `json:"id"`
	TestName    string    `json:"test_name"`
	Date        time.Time `json:"date"`
	State       string    `json:"state"`
	Urgent      bool      `json:"urgent"`
	CriteriaIDs string    `json:"subclass_test_ids,omitempty"`
	Context     *string   `json:"context,omitempty"`
}

type VitalsResponse struct {
	Complaint *string  `json:"complain,omitempty"`
	Systolic  *float64 `json:"systolic,omitempty"`
	Diastolic *float64 `json:"diastolic,omitempty"`
	Glycemia  *float64 `json:"sugar_level,omitempty"`
	Weight    *float64 `json:"weight,omitempty"`
	Height    *float64 `json:"height,omitempty"`
}

type LabTestTypeResponse struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Code     string   `json:"code"`
	Criteria []string `json:"criteria,omitempty"`
}

type LabTestOrderRequest struct {
	AppointmentID *int64                 `json:"appointment_id,omitempty"`
	HealthProfID  *int64                 `json:"health_prof_id,omitempty"`
	Urgent        bool                   `json:"urgent"`
	Context       *string                `json:"context,omitempty"`
	Tests         []LabTestSelectRequest `json:"tests"`
}

type LabTestSelectRequest struct {
	TestID      int64   `json:"test_id"`
	CriteriaIDs []int64 `json:"subclass_test_ids"`
}

// Pharmacy

type AddCartItemRequest struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity float64 `json:"quantity"`
}

type CartLineResponse struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"price_per_unit"`
	LineTotal   float64 `json:"total_price"`
}

type CartResponse struct {
	Items []CartLineResponse `json:"items"`
	Total float64            `json:"total"`
}

type CreateOrderRequest struct {
	CartItemIDs     []int64 `json:"cart_item_ids"`
	ShippingAddress string  `json:"shipping_address"`
	Notes           *string `json:"notes,omitempty"`
	PaymentMethod   string  `json:"payment_method"`
}

type CreateOrderResponse struct {
	OrderID int64  `json:"order_id"`
	Message string `json:"message"`
}

type UpdateOrderStatusRequest struct {
	NewStatus string `json:"new_status"`
}

type OrderResponse struct {
	ID              int64               `json:"order_id"`
	UserID          int64               `json:"user_id"`
	OrderDate       time.Time           `json:"order_date"`
	Status          string              `json:"status"`
	TotalAmount     float64             `json:"total_amount"`
	PaymentMethod   *string             `json:"payment_method,omitempty"`
	PaymentStatus   *string             `json:"payment_status,omitempty"`
	ShippingAddress *string             `json:"shipping_address,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []OrderItemResponse `json:"items,omitempty"`
}

type OrderItemResponse struct {
	ID          int64   `json:"item_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"price_per_unit"`
	TotalPrice  float64 `json:"total_price"`
}
