package lenshub

const lensHubABI = `[
  {
    "type": "function",
    "name": "setDispatcherWithSig",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "vars",
        "type": "tuple",
        "internalType": "struct DataTypes.SetDispatcherWithSigData",
        "components": [
          {"name": "profileId", "type": "uint256", "internalType": "uint256"},
          {"name": "dispatcher", "type": "address", "internalType": "address"},
          {
            "name": "sig",
            "type": "tuple",
            "internalType": "struct DataTypes.EIP712Signature",
            "components": [
              {"name": "v", "type": "uint8", "internalType": "uint8"},
              {"name": "r", "type": "bytes32", "internalType": "bytes32"},
              {"name": "s", "type": "bytes32", "internalType": "bytes32"},
              {"name": "deadline", "type": "uint256", "internalType": "uint256"}
            ]
          }
        ]
      }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "postWithSig",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "vars",
        "type": "tuple",
        "internalType": "struct DataTypes.PostWithSigData",
        "components": [
          {"name": "profileId", "type": "uint256", "internalType": "uint256"},
          {"name": "contentURI", "type": "string", "internalType": "string"},
          {"name": "collectModule", "type": "address", "internalType": "address"},
          {"name": "collectModuleInitData", "type": "bytes", "internalType": "bytes"},
          {"name": "referenceModule", "type": "address", "internalType": "address"},
          {"name": "referenceModuleInitData", "type": "bytes", "internalType": "bytes"},
          {
            "name": "sig",
            "type": "tuple",
            "internalType": "struct DataTypes.EIP712Signature",
            "components": [
              {"name": "v", "type": "uint8", "internalType": "uint8"},
              {"name": "r", "type": "bytes32", "internalType": "bytes32"},
              {"name": "s", "type": "bytes32", "internalType": "bytes32"},
              {"name": "deadline", "type": "uint256", "internalType": "uint256"}
            ]
          }
        ]
      }
    ],
    "outputs": [{"name": "", "type": "uint256", "internalType": "uint256"}]
  }
]`
