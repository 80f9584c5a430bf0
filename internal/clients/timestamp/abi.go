package timestamp

// timestampContractABI covers the timestamp registry surface:
// commitHash(hash) and verifyHash(hash), the latter returning the block
// number the hash was committed at (0 if never committed).
const timestampContractABI = `[
	{"type":"function","name":"commitHash","stateMutability":"nonpayable","inputs":[{"name":"contentHash","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"verifyHash","stateMutability":"view","inputs":[{"name":"contentHash","type":"bytes32"}],"outputs":[{"name":"blockNumber","type":"uint256"}]}
]`
