package loan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opensource-finance/credivist/internal/persona"
)

// ErrLoanNotFound is returned for a product key outside the catalog.
var ErrLoanNotFound = errors.New("loan not found")

// Source tells which scoring path a product belongs to.
type Source string

const (
	SourceTransaction Source = "transaction"
	SourcePersona     Source = "persona"
)

// Product is one catalog entry.
type Product struct {
	Key                 string   `json:"key"`
	Name                string   `json:"name"`
	Icon                string   `json:"icon"`
	Category            string   `json:"category"`
	MinScore            float64  `json:"min_score"`
	MinIncome           float64  `json:"min_income"`
	AmountRange         Range    `json:"amount_range"`
	InterestRange       Range    `json:"interest_range"`
	TenureRange         IntRange `json:"tenure_range"`
	Collateral          bool     `json:"collateral"`
	ProcessingFee       string   `json:"processing_fee"`
	Description         string   `json:"description"`
	Lenders             []string `json:"lenders"`
	Documents           []string `json:"documents"`
	Subsidy             string   `json:"subsidy,omitempty"`
	EligibilityCriteria []string `json:"eligibility_criteria"`
	Source              Source   `json:"source"`
	Persona             string   `json:"persona,omitempty"`
}

func (p Product) clone() Product {
	p.Lenders = append([]string(nil), p.Lenders...)
	p.Documents = append([]string(nil), p.Documents...)
	p.EligibilityCriteria = append([]string{}, p.EligibilityCriteria...)
	return p
}

var transactionProducts = []Product{
	{
		Key: "personal_loan", Name: "Personal Loan", Icon: "💰", Category: "Personal",
		MinScore: 550, MinIncome: 10000,
		AmountRange: Range{25000, 500000}, InterestRange: Range{10.5, 24.0}, TenureRange: IntRange{6, 60},
		ProcessingFee: "1-2%",
		Description:   "Unsecured personal loan for any purpose",
		Lenders:       []string{"Banks", "NBFCs", "Fintech"},
		Documents:     []string{"Aadhaar Card", "PAN Card", "Bank Statement (6 months)", "Salary Slip / Income Proof"},
	},
	{
		Key: "business_loan", Name: "Business Loan / Working Capital", Icon: "🏢", Category: "Business",
		MinScore: 600, MinIncome: 15000,
		AmountRange: Range{50000, 1000000}, InterestRange: Range{12.0, 22.0}, TenureRange: IntRange{12, 60},
		ProcessingFee: "1.5-2.5%",
		Description:   "Working capital or business expansion loan",
		Lenders:       []string{"Banks", "NBFCs", "SIDBI"},
		Documents:     []string{"Business Registration", "Bank Statement (12 months)", "GST Returns", "ITR (2 years)"},
	},
	{
		Key: "home_loan", Name: "Home Loan", Icon: "🏠", Category: "Property",
		MinScore: 700, MinIncome: 25000,
		AmountRange: Range{500000, 5000000}, InterestRange: Range{8.5, 12.0}, TenureRange: IntRange{60, 360},
		Collateral: true, ProcessingFee: "0.5-1%",
		Description: "Long-term secured loan for property purchase",
		Lenders:     []string{"Banks", "HFCs"},
		Documents: []string{"Aadhaar Card", "PAN Card", "Bank Statement (12 months)",
			"Salary Slip (6 months)", "Property Documents", "ITR (3 years)"},
		Subsidy: "PMAY: up to ₹2.67L interest subsidy for EWS/LIG",
	},
	{
		Key: "vehicle_loan", Name: "Vehicle / Auto Loan", Icon: "🚗", Category: "Vehicle",
		MinScore: 600, MinIncome: 20000,
		AmountRange: Range{100000, 1500000}, InterestRange: Range{9.0, 15.0}, TenureRange: IntRange{12, 84},
		Collateral: true, ProcessingFee: "1-2%",
		Description: "Secured loan for two-wheeler or four-wheeler purchase",
		Lenders:     []string{"Banks", "NBFCs"},
		Documents:   []string{"Aadhaar Card", "PAN Card", "Bank Statement (6 months)", "Income Proof", "Vehicle Quotation"},
	},
	{
		Key: "education_loan", Name: "Education Loan", Icon: "🎓", Category: "Education",
		MinScore:    500,
		AmountRange: Range{100000, 2000000}, InterestRange: Range{8.0, 14.0}, TenureRange: IntRange{60, 180},
		ProcessingFee: "0-1%",
		Description:   "Loan for higher education (Vidya Lakshmi portal eligible)",
		Lenders:       []string{"Banks", "Vidya Lakshmi Portal"},
		Documents: []string{"Aadhaar Card", "Admission Letter", "Fee Structure",
			"Academic Records", "Co-applicant Income Proof"},
		Subsidy: "Interest subsidy for EWS under CSIS scheme (family income < ₹4.5L)",
	},
	{
		Key: "gold_loan", Name: "Gold Loan", Icon: "🪙", Category: "Secured",
		MinScore:    400,
		AmountRange: Range{10000, 2500000}, InterestRange: Range{7.0, 15.0}, TenureRange: IntRange{3, 36},
		Collateral: true, ProcessingFee: "0.5-1%",
		Description: "Quick secured loan against gold ornaments",
		Lenders:     []string{"Banks", "Muthoot", "Manappuram", "IIFL"},
		Documents:   []string{"Aadhaar Card", "Gold for Pledging"},
	},
	{
		Key: "credit_card", Name: "Credit Card", Icon: "💳", Category: "Revolving",
		MinScore: 650, MinIncome: 15000,
		AmountRange: Range{15000, 300000}, InterestRange: Range{24.0, 42.0}, TenureRange: IntRange{0, 0},
		ProcessingFee: "₹0-₹500 annual fee",
		Description:   "Revolving credit line for purchases",
		Lenders:       []string{"Banks"},
		Documents:     []string{"Aadhaar Card", "PAN Card", "Bank Statement (3 months)", "Salary Slip"},
	},
	{
		Key: "loan_against_fd", Name: "Loan Against FD / MF", Icon: "🏦", Category: "Secured",
		MinScore:    400,
		AmountRange: Range{10000, 1000000}, InterestRange: Range{6.5, 10.0}, TenureRange: IntRange{1, 60},
		Collateral: true, ProcessingFee: "0-0.5%",
		Description: "Loan against Fixed Deposit or Mutual Fund holdings",
		Lenders:     []string{"Banks", "AMCs"},
		Documents:   []string{"FD Receipt / MF Statement", "KYC Documents"},
	},
	{
		Key: "emergency_loan", Name: "Emergency / Instant Loan", Icon: "🚨", Category: "Personal",
		MinScore: 450, MinIncome: 8000,
		AmountRange: Range{5000, 100000}, InterestRange: Range{15.0, 36.0}, TenureRange: IntRange{1, 12},
		ProcessingFee: "2-3%",
		Description:   "Quick disbursal micro loan for emergencies",
		Lenders:       []string{"Fintech Apps", "NBFCs"},
		Documents:     []string{"Aadhaar Card", "PAN Card", "Bank Statement (3 months)"},
	},
}

var personaProducts = map[string][]Product{
	persona.Farmer: {
		{
			Key: "kcc", Name: "Kisan Credit Card (KCC)", Icon: "🌾", Category: "Agriculture",
			MinScore:    450,
			AmountRange: Range{25000, 300000}, InterestRange: Range{4.0, 7.0}, TenureRange: IntRange{12, 60},
			ProcessingFee: "₹0",
			Description:   "Crop loan + working capital at subsidized rates. 3% interest subvention by GoI.",
			Lenders:       []string{"Cooperative Banks", "Regional Rural Banks", "Commercial Banks"},
			Documents:     []string{"Aadhaar Card", "Land Records / Patta", "Crop Sowing Certificate", "Passport Photo"},
			Subsidy:       "4% interest subvention (effective rate ~4% for prompt repayment)",
			EligibilityCriteria: []string{"owns_land", "crops_per_year"},
		},
		{
			Key: "crop_loan", Name: "Crop Loan", Icon: "🌱", Category: "Agriculture",
			MinScore:    400,
			AmountRange: Range{10000, 200000}, InterestRange: Range{4.0, 9.0}, TenureRange: IntRange{6, 12},
			ProcessingFee:       "₹0",
			Description:         "Short-term loan for crop sowing, seeds, fertilizers.",
			Lenders:             []string{"Cooperative Banks", "NABARD"},
			Documents:           []string{"Aadhaar Card", "Land Records", "Sowing Certificate"},
			Subsidy:             "Interest subvention under Modified Interest Subvention Scheme (MISS)",
			EligibilityCriteria: []string{"owns_land"},
		},
		{
			Key: "farm_equipment", Name: "Farm Equipment Loan", Icon: "🚜", Category: "Agriculture",
			MinScore:    550,
			AmountRange: Range{50000, 1000000}, InterestRange: Range{8.0, 12.0}, TenureRange: IntRange{24, 84},
			Collateral: true, ProcessingFee: "1%",
			Description:         "Loan for tractors, tillers, pumps, irrigation equipment.",
			Lenders:             []string{"Banks", "NABARD", "Mahindra Finance"},
			Documents:           []string{"Aadhaar Card", "Land Records", "Equipment Quotation", "Income Proof"},
			Subsidy:             "Subsidy under SMAM scheme (25-50% for small/marginal farmers)",
			EligibilityCriteria: []string{"owns_land", "land_acres"},
		},
		{
			Key: "dairy_poultry", Name: "Dairy / Poultry / Fishery Loan", Icon: "🐄", Category: "Allied Agriculture",
			MinScore:    500,
			AmountRange: Range{25000, 500000}, InterestRange: Range{7.0, 11.0}, TenureRange: IntRange{12, 60},
			ProcessingFee: "0.5-1%",
			Description:   "Loan for dairy cattle, poultry farm, inland fisheries.",
			Lenders:       []string{"NABARD", "Cooperative Banks", "AHDF"},
			Documents:     []string{"Aadhaar Card", "Project Report", "Land/Shed Proof"},
			Subsidy:       "25-33% subsidy under DEDS/PMMSY",
		},
		{
			Key: "solar_pump", Name: "Solar Pump Loan (PM-KUSUM)", Icon: "☀️", Category: "Agriculture",
			MinScore:    450,
			AmountRange: Range{20000, 300000}, InterestRange: Range{5.0, 8.0}, TenureRange: IntRange{12, 84},
			ProcessingFee:       "₹0",
			Description:         "Solar irrigation pump with 60% subsidy by Central+State Govt.",
			Lenders:             []string{"NABARD", "State Energy Dept", "Banks"},
			Documents:           []string{"Aadhaar Card", "Land Records", "Electricity Connection"},
			Subsidy:             "60% capital subsidy (30% Central + 30% State)",
			EligibilityCriteria: []string{"owns_land"},
		},
		{
			Key: "warehouse_receipt", Name: "Warehouse Receipt Loan", Icon: "🏭", Category: "Agriculture",
			MinScore:    500,
			AmountRange: Range{10000, 500000}, InterestRange: Range{6.0, 9.0}, TenureRange: IntRange{3, 12},
			Collateral: true, ProcessingFee: "0.5%",
			Description:         "Loan against stored crop in registered warehouse.",
			Lenders:             []string{"WDRA", "Banks", "NABARD"},
			Documents:           []string{"Warehouse Receipt", "Aadhaar Card", "Land Records"},
			EligibilityCriteria: []string{"has_warehouse_receipt"},
		},
	},
	persona.Student: {
		{
			Key: "education_loan", Name: "Education Loan (Vidya Lakshmi)", Icon: "🎓", Category: "Education",
			MinScore:    450,
			AmountRange: Range{100000, 2000000}, InterestRange: Range{8.0, 12.0}, TenureRange: IntRange{60, 180},
			ProcessingFee: "₹0-₹500",
			Description: "Central Sector Education Loan via Vidya Lakshmi Portal. " +
				"Moratorium during study period + 1 year.",
			Lenders: []string{"Banks (SBI, PNB, BOB)", "Vidya Lakshmi Portal"},
			Documents: []string{"Admission Letter", "Fee Structure", "Academic Records",
				"Aadhaar Card", "Co-applicant Income Proof"},
			Subsidy:             "Full interest subsidy during moratorium for family income < ₹4.5L/yr (CSIS)",
			EligibilityCriteria: []string{"score_value"},
		},
		{
			Key: "skill_loan", Name: "Skill Development Loan", Icon: "🛠️", Category: "Education",
			MinScore:    400,
			AmountRange: Range{5000, 150000}, InterestRange: Range{8.0, 12.0}, TenureRange: IntRange{3, 84},
			ProcessingFee: "₹0",
			Description:   "Loan for vocational/skill training courses (NSDC approved).",
			Lenders:       []string{"Banks", "NSDC"},
			Documents:     []string{"Course Admission Letter", "Aadhaar Card", "Training Center NSDC Affiliation"},
			Subsidy:       "Interest subsidy for courses under PMKVY",
		},
		{
			Key: "device_loan", Name: "Laptop / Device Loan", Icon: "💻", Category: "Personal",
			MinScore:    500,
			AmountRange: Range{10000, 100000}, InterestRange: Range{12.0, 18.0}, TenureRange: IntRange{3, 24},
			ProcessingFee: "1-2%",
			Description:   "EMI-based purchase of laptop, tablet, or smartphone.",
			Lenders:       []string{"Bajaj Finserv", "HDB Financial", "ZestMoney"},
			Documents:     []string{"Student ID", "Aadhaar Card", "Address Proof"},
		},
		{
			Key: "startup_loan", Name: "Startup India Seed Loan", Icon: "🚀", Category: "Business",
			MinScore:    600,
			AmountRange: Range{100000, 500000}, InterestRange: Range{10.0, 14.0}, TenureRange: IntRange{12, 60},
			ProcessingFee:       "1%",
			Description:         "Seed funding loan for student/graduate entrepreneurs.",
			Lenders:             []string{"SIDBI", "Startup India Fund"},
			Documents:           []string{"Business Plan", "Aadhaar Card", "Degree Certificate", "Incorporation Certificate"},
			Subsidy:             "80% guarantee cover under CGTMSE",
			EligibilityCriteria: []string{"has_internship"},
		},
	},
	persona.StreetVendor: {
		{
			Key: "pm_svanidhi", Name: "PM SVANidhi (Street Vendor Loan)", Icon: "🏪", Category: "Micro Enterprise",
			MinScore:    350,
			AmountRange: Range{10000, 50000}, InterestRange: Range{0.0, 7.0}, TenureRange: IntRange{12, 12},
			ProcessingFee: "₹0",
			Description: "Government micro-credit for street vendors. " +
				"₹10K (1st), ₹20K (2nd), ₹50K (3rd tranche). " +
				"7% interest subsidy + cashback for digital payments.",
			Lenders:             []string{"Banks", "MFIs", "NBFCs", "SHGs"},
			Documents:           []string{"Vendor Certificate / LoR from ULB/Municipality", "Aadhaar Card", "Bank Account"},
			Subsidy:             "7% interest subsidy + ₹1,200/yr digital payment cashback",
			EligibilityCriteria: []string{"has_license"},
		},
		{
			Key: "mudra_shishu", Name: "Mudra Loan: Shishu (up to ₹50K)", Icon: "🌱", Category: "Micro Enterprise",
			MinScore:    400,
			AmountRange: Range{10000, 50000}, InterestRange: Range{10.0, 14.0}, TenureRange: IntRange{12, 36},
			ProcessingFee: "₹0",
			Description:   "Mudra Shishu loan for micro-business working capital.",
			Lenders:       []string{"Banks", "MFIs", "NBFCs"},
			Documents:     []string{"Aadhaar Card", "Business Proof / Address Proof", "Passport Photo"},
		},
		{
			Key: "mudra_kishore", Name: "Mudra Loan: Kishore (₹50K–₹5L)", Icon: "📈", Category: "Micro Enterprise",
			MinScore:    550,
			AmountRange: Range{50000, 500000}, InterestRange: Range{11.0, 16.0}, TenureRange: IntRange{12, 60},
			ProcessingFee:       "0.5-1%",
			Description:         "Mudra Kishore for business expansion / equipment purchase.",
			Lenders:             []string{"Banks", "NBFCs", "SIDBI"},
			Documents:           []string{"Aadhaar Card", "Business Plan / Invoice", "Proof of existing business (2+ years)"},
			EligibilityCriteria: []string{"years_in_trade"},
		},
		{
			Key: "cart_equipment", Name: "Cart / Equipment Loan", Icon: "🛒", Category: "Micro Enterprise",
			MinScore:    450,
			AmountRange: Range{5000, 100000}, InterestRange: Range{12.0, 18.0}, TenureRange: IntRange{6, 36},
			ProcessingFee: "1%",
			Description:   "Loan for carts, cooking equipment, tools, display units.",
			Lenders:       []string{"MFIs", "Cooperative Banks"},
			Documents:     []string{"Aadhaar Card", "Vendor License", "Equipment Quotation"},
		},
		{
			Key: "working_capital_micro", Name: "Working Capital Micro Loan", Icon: "💵", Category: "Micro Enterprise",
			MinScore:    400,
			AmountRange: Range{5000, 75000}, InterestRange: Range{12.0, 24.0}, TenureRange: IntRange{3, 12},
			ProcessingFee: "1-2%",
			Description:   "Short-term working capital for daily stock purchase.",
			Lenders:       []string{"MFIs", "SHGs", "Fintech Apps"},
			Documents:     []string{"Aadhaar Card", "Address Proof"},
		},
	},
	persona.Homemaker: {
		{
			Key: "shg_loan", Name: "SHG Group Loan (NRLM)", Icon: "👩‍👩‍👧‍👦", Category: "Group Lending",
			MinScore:    350,
			AmountRange: Range{10000, 200000}, InterestRange: Range{4.0, 12.0}, TenureRange: IntRange{12, 36},
			ProcessingFee: "₹0",
			Description: "Joint Liability Group / SHG loan under NRLM/DAY-NRLM. " +
				"3% interest subvention for women SHGs.",
			Lenders: []string{"NABARD", "Cooperative Banks", "SHG Federations"},
			Documents: []string{"SHG Registration", "Minutes of Meeting",
				"Member Aadhaar Cards", "Group Savings Passbook"},
			Subsidy:             "3% interest subvention for women SHGs (effective rate ~4%)",
			EligibilityCriteria: []string{"is_shg_member"},
		},
		{
			Key: "mudra_shishu_w", Name: "Mudra Loan: Shishu (Women)", Icon: "🌸", Category: "Micro Enterprise",
			MinScore:    400,
			AmountRange: Range{10000, 50000}, InterestRange: Range{10.0, 14.0}, TenureRange: IntRange{12, 36},
			ProcessingFee: "₹0",
			Description: "Mudra Shishu for women-led micro enterprises: " +
				"tiffin service, tailoring, beauty parlour, etc.",
			Lenders:             []string{"Banks", "MFIs"},
			Documents:           []string{"Aadhaar Card", "Address Proof", "Business Plan (1-page)"},
			EligibilityCriteria: []string{"has_enterprise"},
		},
		{
			Key: "standup_india", Name: "Stand-Up India Loan (Women)", Icon: "🏗️", Category: "Enterprise",
			MinScore:    550,
			AmountRange: Range{100000, 10000000}, InterestRange: Range{8.0, 12.0}, TenureRange: IntRange{36, 84},
			ProcessingFee: "0.5%",
			Description: "Loan for women entrepreneurs in manufacturing, " +
				"services, or trading. At least 1 per bank branch.",
			Lenders: []string{"Scheduled Commercial Banks"},
			Documents: []string{"Aadhaar Card", "PAN Card", "Business Plan",
				"Proof of SC/ST/Woman status", "Project Report"},
			Subsidy:             "CGTMSE guarantee cover, margin money 25%",
			EligibilityCriteria: []string{"has_enterprise"},
		},
		{
			Key: "micro_enterprise_w", Name: "Micro Enterprise Loan", Icon: "🏠", Category: "Micro Enterprise",
			MinScore:    500,
			AmountRange: Range{25000, 200000}, InterestRange: Range{12.0, 18.0}, TenureRange: IntRange{12, 48},
			ProcessingFee:       "1%",
			Description:         "Individual micro enterprise loan for home-based business.",
			Lenders:             []string{"MFIs", "NBFCs", "Cooperative Banks"},
			Documents:           []string{"Aadhaar Card", "Business Proof", "Savings Passbook"},
			EligibilityCriteria: []string{"has_enterprise"},
		},
		{
			Key: "gold_loan_w", Name: "Gold Loan", Icon: "🪙", Category: "Secured",
			MinScore:    350,
			AmountRange: Range{5000, 500000}, InterestRange: Range{7.0, 12.0}, TenureRange: IntRange{3, 24},
			Collateral: true, ProcessingFee: "0.5%",
			Description: "Quick secured loan against gold jewellery.",
			Lenders:     []string{"Muthoot", "Manappuram", "Banks"},
			Documents:   []string{"Aadhaar Card", "Gold for Pledging"},
		},
	},
	persona.GeneralNoBank: {
		{
			Key: "mudra_shishu_g", Name: "Mudra Loan: Shishu", Icon: "🌱", Category: "Micro Enterprise",
			MinScore:    400,
			AmountRange: Range{10000, 50000}, InterestRange: Range{10.0, 14.0}, TenureRange: IntRange{12, 36},
			ProcessingFee: "₹0",
			Description:   "Basic micro loan for starting a small business.",
			Lenders:       []string{"Banks", "MFIs", "NBFCs"},
			Documents:     []string{"Aadhaar Card", "Address Proof", "Passport Photo"},
		},
		{
			Key: "personal_micro", Name: "Personal Micro Loan", Icon: "💵", Category: "Personal",
			MinScore:    450,
			AmountRange: Range{5000, 50000}, InterestRange: Range{15.0, 26.0}, TenureRange: IntRange{3, 12},
			ProcessingFee: "2%",
			Description:   "Small unsecured personal loan from MFIs/Fintech.",
			Lenders:       []string{"MFIs", "Fintech Apps", "SHGs"},
			Documents:     []string{"Aadhaar Card", "Address Proof"},
		},
		{
			Key: "emergency_micro", Name: "Emergency Micro Loan", Icon: "🚨", Category: "Emergency",
			MinScore:    350,
			AmountRange: Range{1000, 25000}, InterestRange: Range{18.0, 30.0}, TenureRange: IntRange{1, 6},
			ProcessingFee: "2-3%",
			Description:   "Quick-disbursal emergency loan for immediate needs.",
			Lenders:       []string{"MFIs", "Fintech Apps"},
			Documents:     []string{"Aadhaar Card"},
		},
		{
			Key: "gold_loan_g", Name: "Gold Loan", Icon: "🪙", Category: "Secured",
			MinScore:    350,
			AmountRange: Range{5000, 500000}, InterestRange: Range{7.0, 12.0}, TenureRange: IntRange{3, 24},
			Collateral: true, ProcessingFee: "0.5%",
			Description: "Secured loan against gold. No income proof needed.",
			Lenders:     []string{"Muthoot", "Manappuram", "Banks"},
			Documents:   []string{"Aadhaar Card", "Gold for Pledging"},
		},
		{
			Key: "jlg_loan", Name: "Joint Liability Group (JLG) Loan", Icon: "🤝", Category: "Group Lending",
			MinScore:    400,
			AmountRange: Range{10000, 100000}, InterestRange: Range{12.0, 18.0}, TenureRange: IntRange{6, 24},
			ProcessingFee: "1%",
			Description: "Loan through a group of 5-10 members. " +
				"Group guarantee replaces collateral.",
			Lenders:             []string{"NABARD", "MFIs", "Cooperative Banks"},
			Documents:           []string{"JLG Formation Docs", "Member Aadhaar Cards", "Group Agreement"},
			EligibilityCriteria: []string{"is_group_member"},
		},
	},
}

func init() {
	for i := range transactionProducts {
		transactionProducts[i].Source = SourceTransaction
	}
	for key, products := range personaProducts {
		for i := range products {
			products[i].Source = SourcePersona
			products[i].Persona = key
		}
	}
}

// TransactionProducts returns the catalog for applicants with bank history.
func TransactionProducts() []Product {
	return cloneAll(transactionProducts)
}

// PersonaProducts returns the catalog of one persona.
func PersonaProducts(key string) ([]Product, error) {
	products, ok := personaProducts[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", persona.ErrUnknownPersona, key)
	}
	return cloneAll(products), nil
}

// Catalog returns every product, transaction products first and then each
// persona's products in persona order.
func Catalog() []Product {
	out := cloneAll(transactionProducts)
	for _, key := range persona.Keys() {
		out = append(out, cloneAll(personaProducts[key])...)
	}
	return out
}

// Find resolves one product by source, persona and key.
func Find(source Source, personaKey, key string) (Product, error) {
	var products []Product
	switch source {
	case SourceTransaction:
		products = transactionProducts
	case SourcePersona:
		products = personaProducts[personaKey]
	}
	for _, p := range products {
		if p.Key == key {
			return p.clone(), nil
		}
	}
	return Product{}, fmt.Errorf("%w: %q in %s/%s catalog", ErrLoanNotFound, key, source, personaKey)
}

// Categories lists the distinct product categories, sorted.
func Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range Catalog() {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

func cloneAll(products []Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.clone()
	}
	return out
}
