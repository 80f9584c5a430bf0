package marketplace

// marketplaceContractABI covers the marketplace surface:
// createListing(cid, metadataUri, price), purchaseDataset(id),
// getListingDetails(id), sellerReputation(addr).
const marketplaceContractABI = `[
	{"type":"function","name":"createListing","stateMutability":"nonpayable","inputs":[{"name":"cid","type":"string"},{"name":"metadataUri","type":"string"},{"name":"price","type":"uint256"}],"outputs":[{"name":"listingId","type":"uint256"}]},
	{"type":"function","name":"purchaseDataset","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getListingDetails","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"cid","type":"string"},{"name":"metadataUri","type":"string"},{"name":"price","type":"uint256"},{"name":"seller","type":"address"}]},
	{"type":"function","name":"sellerReputation","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"reputation","type":"uint256"}]}
]`
