package templates

// ModuleFileName is the target path every bicep template writes.
const ModuleFileName = "{{ .ResourceName }}.module.bicep"

const parameterBlock = `targetScope = 'resourceGroup'
{{ range .Template.Variables }}
{{ if .Description }}@description({{ quote .Description }})
{{ end }}{{ if .Secure }}@secure()
{{ end }}param {{ .Name }} {{ .Type }}{{ if .DefaultExpression }} = {{ .DefaultExpression }}{{ else if .Default }} = {{ literal .Default }}{{ end }}
{{ end }}`

const storageBody = `
resource account 'Microsoft.Storage/storageAccounts@2022-09-01' = {
  name: take('{{ lower .ResourceName }}${uniqueString(resourceGroup().id)}', 24)
  kind: 'StorageV2'
  location: location
  sku: {
    name: 'Standard_GRS'
  }
  properties: {
    accessTier: 'Hot'
    allowSharedKeyAccess: false
    minimumTlsVersion: 'TLS1_2'
  }
  tags: {
    'apphost-resource-name': '{{ .ResourceName }}'
  }
}

resource blobs 'Microsoft.Storage/storageAccounts/blobServices@2022-09-01' = {
  name: 'default'
  parent: account
}

output blobEndpoint string = account.properties.primaryEndpoints.blob

output queueEndpoint string = account.properties.primaryEndpoints.queue

output tableEndpoint string = account.properties.primaryEndpoints.table
`

const keyVaultBody = `
resource vault 'Microsoft.KeyVault/vaults@2023-07-01' = {
  name: take('{{ lower .ResourceName }}-${uniqueString(resourceGroup().id)}', 24)
  location: location
  properties: {
    tenantId: tenant().tenantId
    sku: {
      family: 'A'
      name: 'standard'
    }
    enableRbacAuthorization: true
  }
  tags: {
    'apphost-resource-name': '{{ .ResourceName }}'
  }
}

output vaultUri string = vault.properties.vaultUri

output name string = vault.name
`

// NewStorageTemplate describes a storage account exposing blob, queue and table endpoints.
func NewStorageTemplate() *Template {
	return &Template{
		Name:        "storage",
		Description: "Storage account with blob, queue and table endpoints",
		Version:     "1.0.0",
		Variables: []*TemplateVariable{
			{Name: "location", Type: VariableTypeString, DefaultExpression: "resourceGroup().location", Description: "The location for the resource(s) to be deployed."},
			{Name: "principalId", Type: VariableTypeString},
			{Name: "principalType", Type: VariableTypeString, Default: "ServicePrincipal"},
		},
		Files: []*TemplateFile{
			{TargetPath: ModuleFileName, Content: parameterBlock + storageBody, Template: true},
		},
		Outputs: []string{"blobEndpoint", "queueEndpoint", "tableEndpoint"},
	}
}

// NewKeyVaultTemplate describes a key vault using RBAC authorization.
func NewKeyVaultTemplate() *Template {
	return &Template{
		Name:        "keyvault",
		Description: "Key vault with RBAC authorization",
		Version:     "1.0.0",
		Variables: []*TemplateVariable{
			{Name: "location", Type: VariableTypeString, DefaultExpression: "resourceGroup().location", Description: "The location for the resource(s) to be deployed."},
			{Name: "principalId", Type: VariableTypeString},
		},
		Files: []*TemplateFile{
			{TargetPath: ModuleFileName, Content: parameterBlock + keyVaultBody, Template: true},
		},
		Outputs: []string{"vaultUri", "name"},
	}
}

// BuiltinTemplates returns fresh copies of the built-in templates
func BuiltinTemplates() []*Template {
	return []*Template{
		NewStorageTemplate(),
		NewKeyVaultTemplate(),
	}
}
