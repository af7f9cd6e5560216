package cfn

// Resource types emitted by imagefreight.
const (
	TypeS3Bucket        = "AWS::S3::Bucket"
	TypeS3BucketPolicy  = "AWS::S3::BucketPolicy"
	TypeSSMParameter    = "AWS::SSM::Parameter"
	TypeIAMRole         = "AWS::IAM::Role"
	TypeIAMUser         = "AWS::IAM::User"
	TypeIAMGroup        = "AWS::IAM::Group"
	TypeIAMPolicy       = "AWS::IAM::Policy"
	TypeIAMManaged      = "AWS::IAM::ManagedPolicy"
	TypeInstanceProfile = "AWS::IAM::InstanceProfile"
	TypeSecurityGroup   = "AWS::EC2::SecurityGroup"
	TypeIBComponent     = "AWS::ImageBuilder::Component"
	TypeIBRecipe        = "AWS::ImageBuilder::ImageRecipe"
	TypeIBInfraConfig   = "AWS::ImageBuilder::InfrastructureConfiguration"
	TypeIBPipeline      = "AWS::ImageBuilder::ImagePipeline"
)

// Parameter types.
const (
	ParamSSMString = "AWS::SSM::Parameter::Value<String>"
	ParamString    = "String"
)

// TagStyle says how a resource type carries tags.
type TagStyle int

const (
	TagsNone TagStyle = iota
	TagsList          // [{Key, Value}]
	TagsMap           // {key: value}
)

var tagStyles = map[string]TagStyle{
	TypeS3Bucket:      TagsList,
	TypeIAMRole:       TagsList,
	TypeIAMUser:       TagsList,
	TypeSecurityGroup: TagsList,
	TypeSSMParameter:  TagsMap,
	TypeIBComponent:   TagsMap,
	TypeIBRecipe:      TagsMap,
	TypeIBInfraConfig: TagsMap,
	TypeIBPipeline:    TagsMap,
}

// TagStyleOf returns the tag style for a resource type.
func TagStyleOf(typ string) TagStyle {
	return tagStyles[typ]
}
