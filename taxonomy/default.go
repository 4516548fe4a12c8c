package taxonomy

// Capability labels used by the built-in catalog. Executors bundled with
// SupportMesh declare exactly these labels.
const (
	CapLookupCustomer  = "lookup_customer"
	CapProcessRefund   = "process_refund"
	CapUpdateRecord    = "update_record"
	CapKnowledgeLookup = "knowledge_lookup"
)

// Default returns the built-in customer service catalog. Each step is tagged
// with the capability of the executor that performs it.
func Default() []Category {
	return []Category{
		{
			ID:          "billing",
			Name:        "Billing Issues",
			Description: "Issues related to billing, payments, refunds, and subscriptions.",
			Flows: []Flow{
				{
					ID:          "billing_refund",
					Name:        "Process Refund Request",
					Description: "Handle customer requests for refunds.",
					Steps: []FlowStep{
						{Capability: CapLookupCustomer, Instructions: "Verify customer identity and purchase details."},
						{Capability: CapProcessRefund, Instructions: "Check refund eligibility and process the refund."},
						{Capability: CapUpdateRecord, Instructions: "Record the refund outcome on the customer record."},
					},
				},
				{
					ID:          "billing_subscription",
					Name:        "Subscription Management",
					Description: "Handle subscription changes, cancellations, or issues.",
					Steps: []FlowStep{
						{Capability: CapLookupCustomer, Instructions: "Verify customer identity and subscription details."},
						{Capability: CapUpdateRecord, Instructions: "Apply the requested subscription change."},
					},
				},
				{
					ID:          "billing_payment",
					Name:        "Payment Issue Resolution",
					Description: "Resolve issues with payments, declined cards, or billing errors.",
					Steps: []FlowStep{
						{Capability: CapLookupCustomer, Instructions: "Verify customer identity and payment details."},
						{Capability: CapKnowledgeLookup, Instructions: "Find troubleshooting guidance for the payment issue."},
						{Capability: CapUpdateRecord, Instructions: "Record any adjustment made to resolve the issue."},
					},
				},
			},
		},
		{
			ID:          "technical",
			Name:        "Technical Support",
			Description: "Technical issues with the product or service.",
			Flows: []Flow{
				{
					ID:          "tech_troubleshooting",
					Name:        "General Troubleshooting",
					Description: "General technical troubleshooting for common issues.",
					Steps: []FlowStep{
						{Capability: CapKnowledgeLookup, Instructions: "Find troubleshooting steps matching the reported issue."},
						{Capability: CapUpdateRecord, Instructions: "Log the issue and attempted remediation on the customer record."},
					},
				},
				{
					ID:          "tech_installation",
					Name:        "Installation Support",
					Description: "Help with product installation or setup.",
					Steps: []FlowStep{
						{Capability: CapKnowledgeLookup, Instructions: "Retrieve installation instructions for the customer's product."},
					},
				},
			},
		},
		{
			ID:          "account",
			Name:        "Account Management",
			Description: "Issues related to account creation, login, or profile management.",
			Flows: []Flow{
				{
					ID:          "account_reset",
					Name:        "Password Reset",
					Description: "Help customers reset their password or recover account access.",
					Steps: []FlowStep{
						{Capability: CapLookupCustomer, Instructions: "Verify customer identity before touching the account."},
						{Capability: CapUpdateRecord, Instructions: "Initiate the password reset on the account."},
					},
				},
				{
					ID:          "account_update",
					Name:        "Account Information Update",
					Description: "Help customers update their account information.",
					Steps: []FlowStep{
						{Capability: CapLookupCustomer, Instructions: "Verify customer identity."},
						{Capability: CapUpdateRecord, Instructions: "Apply the requested account information update."},
					},
				},
			},
		},
		{
			ID:          "product",
			Name:        "Product Information",
			Description: "Questions about product features, availability, or compatibility.",
			Flows: []Flow{
				{
					ID:          "product_info",
					Name:        "Product Information",
					Description: "Provide detailed information about products or services.",
					Steps: []FlowStep{
						{Capability: CapKnowledgeLookup, Instructions: "Retrieve accurate, up-to-date information about the product in question."},
					},
				},
				{
					ID:          "product_compatibility",
					Name:        "Compatibility Check",
					Description: "Check if a product is compatible with the customer's system.",
					Steps: []FlowStep{
						{Capability: CapKnowledgeLookup, Instructions: "Check compatibility requirements and limitations."},
					},
				},
			},
		},
		{
			ID:          "shipping",
			Name:        "Shipping and Delivery",
			Description: "Issues related to shipping, delivery, tracking, or returns.",
			Flows: []Flow{
				{
					ID:          "shipping_status",
					Name:        "Order Tracking",
					Description: "Help customers track their orders and shipments.",
					Steps: []FlowStep{
						{Capability: CapLookupCustomer, Instructions: "Verify customer identity and order details."},
						{Capability: CapKnowledgeLookup, Instructions: "Retrieve the current shipping status and estimated delivery."},
					},
				},
				{
					ID:          "shipping_return",
					Name:        "Return Processing",
					Description: "Guide customers through the return process.",
					Steps: []FlowStep{
						{Capability: CapLookupCustomer, Instructions: "Verify order details and return eligibility."},
						{Capability: CapKnowledgeLookup, Instructions: "Explain the return process and policy."},
						{Capability: CapUpdateRecord, Instructions: "Register the return request and provide confirmation."},
					},
				},
			},
		},
	}
}
