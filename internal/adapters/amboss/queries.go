package amboss

const listMarketOffersQuery = `
query ListMarketOffers($limit: Int, $nextToken: String) {
  listMarketOffers(limit: $limit, next_token: $nextToken) {
    next_token
    offers {
      offer_id
      status
      side
      type
      base_fee
      fee_rate
      min_channel_size
      max_channel_size
      min_channel_duration
      seller_score
      node_details {
        pubkey
        alias
      }
    }
  }
}`

const getUserOffersQuery = `
query GetUserOffers {
  getUserOffers {
    list {
      id
      status
      side
      type
      locked_size
      offer_details {
        base_fee
        fee_rate
        min_size
        max_size
        min_block_length
        total_size
      }
    }
  }
}`

const createOfferMutation = `
mutation CreateOffer($input: CreateOffer!) {
  createOffer(input: $input)
}`

const updateOfferMutation = `
mutation UpdateOfferDetails($id: String!, $input: UpdateOfferDetailsInput!) {
  updateOfferDetails(id: $id, input: $input) {
    base_fee
    fee_rate
    min_size
    max_size
    min_block_length
    total_size
  }
}`

const toggleOfferMutation = `
mutation ToggleOffer($id: String!) {
  toggleOffer(id: $id)
}`
