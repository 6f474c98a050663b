package lensapi

const (
	queryDefaultProfile = `
query DefaultProfile($address: EthereumAddress!) {
  defaultProfile(request: { ethereumAddress: $address }) {
    id
    handle
  }
}`

	queryChallenge = `
query Challenge($address: EthereumAddress!) {
  challenge(request: { address: $address }) {
    text
  }
}`

	mutationAuthenticate = `
mutation Authenticate($address: EthereumAddress!, $signature: Signature!) {
  authenticate(request: { address: $address, signature: $signature }) {
    accessToken
    refreshToken
  }
}`

	mutationRefresh = `
mutation Refresh($refreshToken: Jwt!) {
  refresh(request: { refreshToken: $refreshToken }) {
    accessToken
    refreshToken
  }
}`

	queryVerify = `
query Verify($accessToken: Jwt!) {
  verify(request: { accessToken: $accessToken })
}`

	queryProfileDispatcher = `
query ProfileDispatcher($profileId: ProfileId!) {
  profile(request: { profileId: $profileId }) {
    id
    dispatcher {
      address
      canUseRelay
    }
  }
}`

	mutationCreateSetDispatcherTypedData = `
mutation CreateSetDispatcherTypedData($request: SetDispatcherRequest!) {
  createSetDispatcherTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        SetDispatcherWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileId
        dispatcher
      }
    }
  }
}`

	mutationCreatePostTypedData = `
mutation CreatePostTypedData($request: CreatePublicPostRequest!) {
  createPostTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        PostWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileId
        contentURI
        collectModule
        collectModuleInitData
        referenceModule
        referenceModuleInitData
      }
    }
  }
}`

	queryValidatePublicationMetadata = `
query ValidatePublicationMetadata($metadatav2: PublicationMetadataV2Input!) {
  validatePublicationMetadata(request: { metadatav2: $metadatav2 }) {
    valid
    reason
  }
}`
)
