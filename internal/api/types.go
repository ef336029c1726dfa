package api

// Category is a product category as returned by the backend.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// Product is the backend's product representation. Prices are in KES.
type Product struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Price            float64   `json:"price"`
	OldPrice         *float64  `json:"old_price"`
	CategoryID       int64     `json:"category_id"`
	Category         *Category `json:"category"`
	ImageURL         string    `json:"image_url"`
	AdditionalImages []string  `json:"additional_images"`
	Stock            int       `json:"stock"`
	ColorOptions     []string  `json:"color_options"`
	SizeOptions      []string  `json:"size_options"`
	IsFeatured       bool      `json:"is_featured"`
	CreatedAt        string    `json:"created_at"`
}

// CartItem is one product line in a cart. The product snapshot, the
// subtotal and the item id are server-assigned and trusted as-is.
type CartItem struct {
	ID            int64    `json:"id"`
	CartID        int64    `json:"cart_id"`
	Product       *Product `json:"product"`
	Quantity      int      `json:"quantity"`
	SelectedColor string   `json:"selected_color"`
	SelectedSize  string   `json:"selected_size"`
	Subtotal      float64  `json:"subtotal"`
}

// Cart mirrors the server-side cart. Total is server-computed.
type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	CreatedAt string     `json:"created_at"`
}

// OrderItem is one product line captured on an order.
type OrderItem struct {
	ID       int64    `json:"id"`
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
}

// Order is the backend's order representation.
type Order struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	TotalAmount   float64     `json:"total_amount"`
	DeliveryFee   float64     `json:"delivery_fee"`
	Status        string      `json:"status"`
	PhoneNumber   string      `json:"phone_number"`
	FullName      string      `json:"full_name"`
	County        string      `json:"county"`
	Town          string      `json:"town"`
	Address       string      `json:"address"`
	PaymentMethod string      `json:"payment_method"`
	PaymentStatus string      `json:"payment_status"`
	Items         []OrderItem `json:"items"`
	CreatedAt     string      `json:"created_at"`
}

// User is the authenticated account, as returned by the auth endpoints.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	CreatedAt   string `json:"created_at"`
}

// PaymentStatus is the settlement state of an order's payment.
type PaymentStatus struct {
	OrderID       int64  `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
	OrderStatus   string `json:"order_status"`
}

// PaymentStatusCompleted is the backend's terminal settled state.
const PaymentStatusCompleted = "completed"
