package rbac

// Role constants, matching models.Role*
const (
	RoleAdmin      = "admin"
	RoleInfluencer = "influencer"
)

// Permission constants
const (
	PermApply           = "apply"
	PermSubmitWork      = "submit_work"
	PermViewOwnLedger   = "view_own_ledger"
	PermReviewWork      = "review_work"
	PermManageCampaigns = "manage_campaigns"
	PermConfirmPayout   = "confirm_payout"
	PermSettleRevenue   = "settle_revenue"
	PermManageWallets   = "manage_wallets"
	PermViewFinance     = "view_finance"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleInfluencer: {
		PermApply, PermSubmitWork, PermViewOwnLedger,
	},
	RoleAdmin: {
		PermSubmitWork, PermViewOwnLedger,
		PermReviewWork, PermManageCampaigns,
		PermConfirmPayout, PermSettleRevenue, PermManageWallets, PermViewFinance,
		// Admin CANNOT: PermApply
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsFinancialOperation reports whether permission moves or freezes money.
func IsFinancialOperation(permission string) bool {
	return permission == PermConfirmPayout || permission == PermSettleRevenue || permission == PermManageWallets
}
