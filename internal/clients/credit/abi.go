package credit

// creditContractABI is the minimal ABI surface needed for the
// credit contract: creditBalance(addr), purchaseCredits(amount),
// spendCredits(addr, amount, reason).
const creditContractABI = `[
	{"type":"function","name":"creditBalance","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]},
	{"type":"function","name":"purchaseCredits","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"spendCredits","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"},{"name":"amount","type":"uint256"},{"name":"reason","type":"string"}],"outputs":[]}
]`
